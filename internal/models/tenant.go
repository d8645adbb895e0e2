package models

// Tenant is the configuration record for an authenticated caller. RoleArn is
// the tenant-owned role this service assumes to read the tenant's telemetry;
// an empty RoleArn means delegation was never provisioned.
type Tenant struct {
	ID      string `dynamodbav:"tenantId"`
	RoleArn string `dynamodbav:"roleArn"`
	Region  string `dynamodbav:"region"`
}
