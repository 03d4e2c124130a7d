package valueobject

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
)

// ObjectIDLength is the length of a well-formed identifier in hex characters
const ObjectIDLength = 24

// ObjectID is the store-native record identifier: exactly 24 hexadecimal
// characters. The zero value is the empty (invalid) identifier.
type ObjectID string

// NilObjectID is the empty sentinel returned for unresolvable references
const NilObjectID ObjectID = ""

// NewObjectID generates a new random identifier
func NewObjectID() ObjectID {
	buf := make([]byte, ObjectIDLength/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic("objectid: " + err.Error())
	}
	return ObjectID(hex.EncodeToString(buf))
}

// ParseObjectID validates s and returns it as an ObjectID
func ParseObjectID(s string) (ObjectID, error) {
	if !IsValidObjectID(s) {
		return NilObjectID, fmt.Errorf("invalid object id %q: must be %d hex characters", s, ObjectIDLength)
	}
	return ObjectID(s), nil
}

// IsValidObjectID reports whether s is exactly 24 hex characters
func IsValidObjectID(s string) bool {
	if len(s) != ObjectIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !ok {
			return false
		}
	}
	return true
}

// String returns the hex representation
func (id ObjectID) String() string {
	return string(id)
}

// IsZero returns true for the empty sentinel
func (id ObjectID) IsZero() bool {
	return id == NilObjectID
}

// IsValid reports whether the identifier is well-formed
func (id ObjectID) IsValid() bool {
	return IsValidObjectID(string(id))
}

// Value implements driver.Valuer for database storage
func (id ObjectID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	if !id.IsValid() {
		return nil, fmt.Errorf("cannot store malformed object id %q", string(id))
	}
	return string(id), nil
}

// Scan implements sql.Scanner
func (id *ObjectID) Scan(value interface{}) error {
	if value == nil {
		*id = NilObjectID
		return nil
	}
	switch v := value.(type) {
	case string:
		*id = ObjectID(v)
	case []byte:
		*id = ObjectID(v)
	default:
		return errors.New("objectid: unsupported scan type")
	}
	return nil
}
