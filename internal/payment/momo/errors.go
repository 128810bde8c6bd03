package momo

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProviderError is a failure reported by, or on the way to, the gateway.
// Code is the gateway's errorCode, or NETWORK / HTTP_<status> / DECODE for
// transport failures.
type ProviderError struct {
	Code         string
	Message      string
	LocalMessage string
	Err          error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("momo error %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("momo error %s: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// flexString accepts a JSON string or number. The gateway is inconsistent
// about quoting errorCode, amount and transId.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string {
	return string(f)
}
