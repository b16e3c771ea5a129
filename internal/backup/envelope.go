// Package backup encodes and validates the JSON envelopes used to export
// and import the product catalog and daily reports.
package backup

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"quicksale/backend/internal/domain"
)

// Kind selects which collection an envelope carries.
type Kind int

const (
	KindProducts Kind = iota + 1
	KindReports
)

func (k Kind) String() string {
	switch k {
	case KindProducts:
		return "products"
	case KindReports:
		return "reports"
	default:
		return "unknown"
	}
}

// ExpectedKey is the storage key an envelope of this kind must name.
func (k Kind) ExpectedKey() string {
	switch k {
	case KindProducts:
		return domain.KeyProducts
	case KindReports:
		return domain.KeyReports
	default:
		return ""
	}
}

func (k Kind) ExportType() string {
	switch k {
	case KindProducts:
		return domain.ExportTypeProducts
	case KindReports:
		return domain.ExportTypeReports
	default:
		return ""
	}
}

func (k Kind) filePrefix() string {
	if k == KindProducts {
		return "backup_products"
	}
	return "report_export"
}

// File is an encoded backup ready for delivery.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Encode wraps data in an envelope stamped with now and names the file after
// the export day.
func Encode(kind Kind, data any, now time.Time) (File, error) {
	if kind.ExpectedKey() == "" {
		return File{}, fmt.Errorf("encode backup: unknown kind %d", kind)
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return File{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	env := domain.Envelope{
		ExportType: kind.ExportType(),
		ExportedAt: now.UTC().Format(time.RFC3339),
		Key:        kind.ExpectedKey(),
		Version:    CurrentVersion,
		Data:       payload,
	}
	content, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return File{}, fmt.Errorf("encode %s envelope: %w", kind, err)
	}
	return File{
		Name:        fmt.Sprintf("%s_%s.json", kind.filePrefix(), now.Format("2006-01-02")),
		ContentType: "application/json",
		Content:     content,
	}, nil
}

// Decode parses content and checks the envelope: it must be an object naming
// the storage key of kind, carry non-null data and a supported version.
// The payload itself is left raw; see DecodeReport and DecodeProducts.
func Decode(kind Kind, content []byte) (domain.Envelope, error) {
	var env domain.Envelope
	if strings.TrimSpace(string(content)) == "" {
		return env, domain.ErrCancelled
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(content, &fields); err != nil {
		return env, domain.NewValidationError(kind.String()+" backup", "file is not a JSON object: %v", err)
	}
	if fields == nil {
		return env, domain.NewValidationError(kind.String()+" backup", "file is not a JSON object")
	}

	var key string
	if raw, ok := fields["key"]; !ok || json.Unmarshal(raw, &key) != nil {
		return env, domain.NewValidationError(kind.String()+" backup", "missing key field")
	}
	if key != kind.ExpectedKey() {
		return env, domain.NewValidationError(kind.String()+" backup",
			"key %q does not match %q", key, kind.ExpectedKey())
	}

	data, ok := fields["data"]
	if !ok || isNull(data) {
		return env, domain.NewValidationError(kind.String()+" backup", "missing data field")
	}

	if raw, ok := fields["version"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &env.Version); err != nil {
			return env, domain.NewValidationError(kind.String()+" backup", "version must be a string")
		}
	}
	if err := CheckVersion(env.Version); err != nil {
		return env, domain.NewValidationError(kind.String()+" backup", "%v", err)
	}

	// Descriptive fields are informational only.
	if raw, ok := fields["exportType"]; ok {
		_ = json.Unmarshal(raw, &env.ExportType)
	}
	if raw, ok := fields["exportedAt"]; ok {
		_ = json.Unmarshal(raw, &env.ExportedAt)
	}
	env.Key = key
	env.Data = data
	return env, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
