package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrDelegationRejected marks an AssumeRole call the tenant's account refused
// (revoked role, missing trust policy). It is never retried: retrying an
// authorization failure with identical inputs cannot succeed.
var ErrDelegationRejected = errors.New("role delegation rejected")

// sessionDurationSeconds bounds delegated credentials to a single request's
// lifetime; 900 is the STS minimum.
const sessionDurationSeconds = 900

// AssumeRoleAPI is the STS subset the broker needs.
type AssumeRoleAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// CredentialBroker exchanges a tenant-owned role for short-lived delegated
// credentials. Credentials are returned by value, never persisted and never
// logged.
type CredentialBroker struct {
	client AssumeRoleAPI
	logger *zap.Logger
}

func NewCredentialBroker(client AssumeRoleAPI, logger *zap.Logger) *CredentialBroker {
	return &CredentialBroker{client: client, logger: logger}
}

// Assume exchanges roleArn for delegated credentials, tagging the session
// with a tenant-derived name for the tenant's audit trail.
func (b *CredentialBroker) Assume(ctx context.Context, roleArn, tenantID string) (aws.Credentials, error) {
	sessionName := SessionName(tenantID)

	out, err := b.client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleArn),
		RoleSessionName: aws.String(sessionName),
		DurationSeconds: aws.Int32(sessionDurationSeconds),
	})
	if err != nil {
		if isAccessDenied(err) {
			b.logger.Warn("tenant role refused delegation",
				zap.String("tenant", tenantID), zap.Error(err))
			return aws.Credentials{}, fmt.Errorf("%w for tenant %s", ErrDelegationRejected, tenantID)
		}
		return aws.Credentials{}, fmt.Errorf("error assuming role for tenant %s: %w", tenantID, err)
	}

	c := out.Credentials
	return aws.Credentials{
		AccessKeyID:     aws.ToString(c.AccessKeyId),
		SecretAccessKey: aws.ToString(c.SecretAccessKey),
		SessionToken:    aws.ToString(c.SessionToken),
		CanExpire:       true,
		Expires:         aws.ToTime(c.Expiration),
	}, nil
}

// SessionName derives an audit-friendly RoleSessionName from the tenant id.
// A short random suffix keeps concurrent sessions distinguishable; global
// uniqueness is not required.
func SessionName(tenantID string) string {
	name := "profiler-" + sanitizeSessionName(tenantID) + "-" + uuid.NewString()[:8]
	// RoleSessionName is capped at 64 characters.
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}

// sanitizeSessionName maps the opaque tenant id onto the characters STS
// accepts in a RoleSessionName.
func sanitizeSessionName(tenantID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '+' || r == '=' || r == ',' || r == '.' || r == '@' || r == '_' || r == '-':
			return r
		default:
			return '-'
		}
	}, tenantID)
}

func isAccessDenied(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "AccessDenied", "AccessDeniedException", "ExpiredTokenException", "MalformedPolicyDocument":
		return true
	}
	return false
}
