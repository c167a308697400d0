package domain

import (
	"encoding/json"
	"fmt"
)

// Ref identifies a single domain object for notification and security
// checks. It is a value type and never mutated after construction.
type Ref struct {
	Class string `json:"class"`
	ID    string `json:"id"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s", r.Class, r.ID)
}

type ChangeKind int

const (
	Create ChangeKind = iota
	Update
	Delete
)

var changeKindNames = map[ChangeKind]string{
	Create: "create",
	Update: "update",
	Delete: "delete",
}

var changeKindFromName = map[string]ChangeKind{
	"create": Create,
	"update": Update,
	"delete": Delete,
}

func (k ChangeKind) String() string {
	if s, ok := changeKindNames[k]; ok {
		return s
	}
	return "unknown"
}

func (k ChangeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *ChangeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := changeKindFromName[s]; ok {
		*k = v
	}
	return nil
}

// ChangeEvent is emitted once per commit per affected object. Tenant is the
// owning scope of the changed object; ids are only unique within a tenant, so
// fan-out must never act on Ref alone. Events are transient: they live for
// one notification cycle and are never retained.
type ChangeEvent struct {
	Ref    Ref
	Kind   ChangeKind
	Tenant string
}
