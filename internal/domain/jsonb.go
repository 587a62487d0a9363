package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONBMap is a custom type for handling JSONB data in PostgreSQL.
// It implements sql.Scanner and driver.Valuer to convert between Go's
// map[string]any and PostgreSQL's JSONB type.
type JSONBMap map[string]any

// Scan implements the sql.Scanner interface.
func (j *JSONBMap) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}

	data, err := jsonbBytes(value)
	if err != nil {
		return err
	}

	if len(data) == 0 {
		*j = JSONBMap{}
		return nil
	}

	return json.Unmarshal(data, j)
}

// Value implements the driver.Valuer interface.
func (j JSONBMap) Value() (driver.Value, error) {
	if len(j) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for run log arrays.
func (l *RunLogs) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}

	data, err := jsonbBytes(value)
	if err != nil {
		return err
	}

	if len(data) == 0 {
		*l = RunLogs{}
		return nil
	}

	return json.Unmarshal(data, l)
}

// Value implements the driver.Valuer interface for run log arrays.
func (l RunLogs) Value() (driver.Value, error) {
	if len(l) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// jsonbBytes converts a scanned database value to raw JSON bytes.
func jsonbBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, errors.New("unsupported type for JSONB column")
	}
}
