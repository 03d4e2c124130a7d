package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/openpharm/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ReferenceSnapshot holds the denormalized fields a populated reference
// may carry alongside the raw ID. Absent amounts stay at zero and absent
// descriptions stay empty; missing snapshot data never fails resolution.
type ReferenceSnapshot struct {
	TotalAmount     decimal.Decimal
	AvailableAmount *decimal.Decimal
	Description     string
	GroupNumber     string
	Status          GroupStatus
	Date            *time.Time
}

// ResolvedReference is the canonical result of normalizing a reference
// field. Valid is false when no well-formed 24-hex identifier could be
// recovered; such references must never be used for navigation or
// lookups.
type ResolvedReference struct {
	ID       valueobject.ObjectID
	Valid    bool
	Snapshot *ReferenceSnapshot
}

// ResolveReference normalizes a reference field that may arrive as a
// bare ID string, a populated object carrying "_id", an extended-JSON
// {"$oid": ...} wrapper, a fmt.Stringer, or nothing at all. All graph
// traversal goes through this single entry point so shape checks do not
// leak into call sites.
func ResolveReference(raw interface{}) ResolvedReference {
	switch v := raw.(type) {
	case nil:
		return ResolvedReference{ID: valueobject.NilObjectID}
	case string:
		return resolvedFromString(v, nil)
	case valueobject.ObjectID:
		return resolvedFromString(string(v), nil)
	case json.RawMessage:
		var decoded interface{}
		if err := json.Unmarshal(v, &decoded); err != nil {
			return ResolvedReference{ID: valueobject.NilObjectID}
		}
		return ResolveReference(decoded)
	case map[string]interface{}:
		return resolveObject(v)
	case fmt.Stringer:
		return resolvedFromString(v.String(), nil)
	default:
		return ResolvedReference{ID: valueobject.NilObjectID}
	}
}

func resolvedFromString(s string, snapshot *ReferenceSnapshot) ResolvedReference {
	if !valueobject.IsValidObjectID(s) {
		return ResolvedReference{ID: valueobject.NilObjectID, Snapshot: snapshot}
	}
	return ResolvedReference{ID: valueobject.ObjectID(s), Valid: true, Snapshot: snapshot}
}

// resolveObject handles populated sub-documents. The ID may live under
// "_id" (possibly itself an {"$oid": ...} wrapper) or directly under
// "$oid" for extended-JSON values.
func resolveObject(obj map[string]interface{}) ResolvedReference {
	id := extractID(obj)
	snapshot := extractSnapshot(obj)
	return resolvedFromString(id, snapshot)
}

func extractID(obj map[string]interface{}) string {
	if oid, ok := obj["$oid"].(string); ok {
		return oid
	}
	switch inner := obj["_id"].(type) {
	case string:
		return inner
	case map[string]interface{}:
		if oid, ok := inner["$oid"].(string); ok {
			return oid
		}
	case fmt.Stringer:
		return inner.String()
	}
	if s, ok := obj["id"].(string); ok {
		return s
	}
	return ""
}

func extractSnapshot(obj map[string]interface{}) *ReferenceSnapshot {
	snapshot := &ReferenceSnapshot{}
	populated := false

	if amount, ok := toDecimal(obj["totalAmount"]); ok {
		snapshot.TotalAmount = amount
		populated = true
	}
	if amount, ok := toDecimal(obj["availableAmount"]); ok {
		snapshot.AvailableAmount = &amount
		populated = true
	}
	if s, ok := obj["description"].(string); ok {
		snapshot.Description = s
		populated = true
	}
	if s, ok := obj["groupNumber"].(string); ok {
		snapshot.GroupNumber = s
		populated = true
	}
	if s, ok := obj["status"].(string); ok {
		if status := GroupStatus(s); status.IsValid() {
			snapshot.Status = status
			populated = true
		}
	}
	if s, ok := obj["transactionDate"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			snapshot.Date = &ts
			populated = true
		}
	}

	if !populated {
		return nil
	}
	return snapshot
}

// toDecimal converts the numeric shapes a JSON document may carry
func toDecimal(raw interface{}) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case decimal.Decimal:
		return v, true
	default:
		return decimal.Zero, false
	}
}
