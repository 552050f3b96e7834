package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// VerificationCodeDigits is the length of e-mail verification codes.
const VerificationCodeDigits = 6

// FlexiCode is a verification code sent either as a JSON string or a number.
// Numbers lose their leading zeros on the client, so they are padded back.
type FlexiCode string

func (c *FlexiCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("error decoding code: %w", err)
		}
		*c = FlexiCode(s)
		return nil
	}

	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("code must be a string or a non-negative integer: %w", err)
	}
	*c = FlexiCode(fmt.Sprintf("%0*d", VerificationCodeDigits, n))
	return nil
}
