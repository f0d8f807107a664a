package log

import (
	"maps"
	"slices"
)

// Attribute keys shared by every record the ledger writes.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldReferer       = "referer"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldTransactionID = "transaction_id"
	FieldType          = "type"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldCount         = "count"
)

const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentExport  = "export"
	ComponentTrace   = "trace"
)

const (
	OpCreate = "create"
	OpRead   = "read"
	OpDelete = "delete"
	OpClear  = "clear"
	OpList   = "list"
	OpExport = "export"
)

// LogFields collects attributes before they are handed to slog.
type LogFields map[string]any

func NewFields() LogFields {
	return LogFields{}
}

func (f LogFields) set(kv ...any) LogFields {
	for i := 0; i+1 < len(kv); i += 2 {
		f[kv[i].(string)] = kv[i+1]
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	return f.set(FieldClientIP, ip)
}

// WithError is a no-op for a nil error.
func (f LogFields) WithError(err error) LogFields {
	if err == nil {
		return f
	}
	return f.set(FieldError, err.Error())
}

func (f LogFields) WithOperation(op string) LogFields {
	return f.set(FieldOperation, op)
}

// WithTransaction records a transaction; amount is the decimal string.
func (f LogFields) WithTransaction(id int64, txType, amount, category string) LogFields {
	return f.set(FieldTransactionID, id, FieldType, txType, FieldAmount, amount, FieldCategory, category)
}

func (f LogFields) WithMonth(year, month int) LogFields {
	return f.set(FieldYear, year, FieldMonth, month)
}

// WithHTTPRequest skips empty user agent and referer headers.
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f.set(FieldMethod, method, FieldPath, path, FieldQuery, query)
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	if referer != "" {
		f[FieldReferer] = referer
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	return f.set(FieldStatusCode, statusCode, FieldDuration, durationMs, FieldSuccess, success)
}

// ToSlice flattens f into slog key/value arguments ordered by key.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for _, k := range slices.Sorted(maps.Keys(f)) {
		out = append(out, k, f[k])
	}
	return out
}
