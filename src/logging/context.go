package logging

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are added to every record logged with the carrying context.
type LogFields struct {
	FeatureID  *int64
	ProposalID *int64
	RequestID  string
	Component  string // e.g. "proposals.vote"
}

// WithLogFields merges fields into ctx; non-empty new values win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := GetLogFields(ctx)
	if fields.FeatureID != nil {
		merged.FeatureID = fields.FeatureID
	}
	if fields.ProposalID != nil {
		merged.ProposalID = fields.ProposalID
	}
	if fields.RequestID != "" {
		merged.RequestID = fields.RequestID
	}
	if fields.Component != "" {
		merged.Component = fields.Component
	}
	return context.WithValue(ctx, logFieldsKey, merged)
}

func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}
