package domain

import "fmt"

// Class names as they cross the wire. The server qualifies them internally;
// clients never name anything outside this set.
const (
	ClassOrganization    = "Organization"
	ClassFacility        = "Facility"
	ClassNetwork         = "Network"
	ClassUser            = "User"
	ClassChe             = "Che"
	ClassWorkInstruction = "WorkInstruction"
)

// Che statuses.
const (
	CheIdle     = "IDLE"
	CheMoving   = "MOVING"
	CheCharging = "CHARGING"
	CheFault    = "FAULT"
)

// Work instruction statuses.
const (
	WINew       = "NEW"
	WIAssigned  = "ASSIGNED"
	WIActive    = "ACTIVE"
	WIComplete  = "COMPLETE"
	WICancelled = "CANCELLED"
)

// Organization is the tenant root. Its ID is the tenant scope every other
// object in the organization carries.
type Organization struct {
	ID   string
	Name string
}

func (o *Organization) Ref() Ref       { return Ref{Class: ClassOrganization, ID: o.ID} }
func (o *Organization) Tenant() string { return o.ID }
func (o *Organization) Clone() Object  { c := *o; return &c }

type Facility struct {
	ID    string
	OrgID string
	Name  string
}

func (f *Facility) Ref() Ref       { return Ref{Class: ClassFacility, ID: f.ID} }
func (f *Facility) Tenant() string { return f.OrgID }
func (f *Facility) Clone() Object  { c := *f; return &c }

// Network is a site-level control network. Credential is the shared secret
// a floor controller proves possession of during NetworkAttach; it is never
// exposed through an accessor.
type Network struct {
	ID         string
	OrgID      string
	FacilityID string
	Name       string
	Credential string
}

func (n *Network) Ref() Ref       { return Ref{Class: ClassNetwork, ID: n.ID} }
func (n *Network) Tenant() string { return n.OrgID }
func (n *Network) Clone() Object  { c := *n; return &c }

// User is an operator or site-gateway account. PasswordHash is a bcrypt
// hash and is never exposed through an accessor.
type User struct {
	ID           string
	OrgID        string
	Name         string
	PasswordHash string
	SiteGateway  bool
}

func (u *User) Ref() Ref       { return Ref{Class: ClassUser, ID: u.ID} }
func (u *User) Tenant() string { return u.OrgID }
func (u *User) Clone() Object  { c := *u; return &c }

// Che is a cart/handheld controller device on the floor.
type Che struct {
	ID      string
	OrgID   string
	Name    string
	Zone    string
	Status  string
	Battery int
}

func (c *Che) Ref() Ref       { return Ref{Class: ClassChe, ID: c.ID} }
func (c *Che) Tenant() string { return c.OrgID }
func (c *Che) Clone() Object  { cp := *c; return &cp }

// WorkInstruction is one unit of floor work, optionally assigned to a CHE.
type WorkInstruction struct {
	ID       string
	OrgID    string
	CheID    string
	Zone     string
	Status   string
	Sequence int
	Priority int
}

func (w *WorkInstruction) Ref() Ref       { return Ref{Class: ClassWorkInstruction, ID: w.ID} }
func (w *WorkInstruction) Tenant() string { return w.OrgID }
func (w *WorkInstruction) Clone() Object  { c := *w; return &c }

// RouteComputer is the business service contract CHE route accessors
// delegate to. Registered in the service locator under "route".
type RouteComputer interface {
	ComputeRoute(cheID, fromZone, toZone string) ([]string, error)
}

// LightingDirector is the business service contract for aisle lighting
// instructions. Registered in the service locator under "lighting".
type LightingDirector interface {
	LightZone(zone string, sequence int) (string, error)
}

// DefaultClasses builds the closed class registry with every accessor table.
// Accessor names and prefixes are validated here, at construction, so a
// misregistered table fails at startup rather than on first use.
func DefaultClasses() *Classes {
	org := newClassDescriptor(ClassOrganization, false)
	org.getter("getName", "name", func(o Object) any { return o.(*Organization).Name })

	fac := newClassDescriptor(ClassFacility, false)
	fac.getter("getName", "name", func(o Object) any { return o.(*Facility).Name })
	fac.getter("getOrganization", "organizationId", func(o Object) any { return o.(*Facility).OrgID })

	net := newClassDescriptor(ClassNetwork, false)
	net.getter("getName", "name", func(o Object) any { return o.(*Network).Name })
	net.getter("getFacility", "facilityId", func(o Object) any { return o.(*Network).FacilityID })

	user := newClassDescriptor(ClassUser, false)
	user.getter("getName", "name", func(o Object) any { return o.(*User).Name })
	user.getter("isSiteGateway", "siteGateway", func(o Object) any { return o.(*User).SiteGateway })

	che := newClassDescriptor(ClassChe, true)
	che.getter("getName", "name", func(o Object) any { return o.(*Che).Name })
	che.getter("getZone", "zone", func(o Object) any { return o.(*Che).Zone })
	che.getter("getStatus", "status", func(o Object) any { return o.(*Che).Status })
	che.getter("getBattery", "battery", func(o Object) any { return o.(*Che).Battery })
	che.setter("setZone", ParamString, func(o Object, v any) error {
		o.(*Che).Zone = v.(string)
		return nil
	})
	che.setter("setStatus", ParamString, func(o Object, v any) error {
		s := v.(string)
		switch s {
		case CheIdle, CheMoving, CheCharging, CheFault:
			o.(*Che).Status = s
			return nil
		}
		return fmt.Errorf("%w: invalid che status %q", ErrBadArgument, s)
	})
	che.method("markFault", nil, true, func(_ ServiceResolver, o Object, _ []any) (any, error) {
		o.(*Che).Status = CheFault
		return nil, nil
	})
	che.method("computeRoute", []ParamType{ParamString}, false, func(r ServiceResolver, o Object, args []any) (any, error) {
		svc, err := r.ResolveService("route")
		if err != nil {
			return nil, err
		}
		c := o.(*Che)
		return svc.(RouteComputer).ComputeRoute(c.ID, c.Zone, args[0].(string))
	})

	wi := newClassDescriptor(ClassWorkInstruction, true)
	wi.getter("getStatus", "status", func(o Object) any { return o.(*WorkInstruction).Status })
	wi.getter("getZone", "zone", func(o Object) any { return o.(*WorkInstruction).Zone })
	wi.getter("getChe", "cheId", func(o Object) any { return o.(*WorkInstruction).CheID })
	wi.getter("getSequence", "sequence", func(o Object) any { return o.(*WorkInstruction).Sequence })
	wi.getter("getPriority", "priority", func(o Object) any { return o.(*WorkInstruction).Priority })
	wi.setter("setPriority", ParamInt, func(o Object, v any) error {
		o.(*WorkInstruction).Priority = v.(int)
		return nil
	})
	wi.method("assignChe", []ParamType{ParamString}, true, func(_ ServiceResolver, o Object, args []any) (any, error) {
		w := o.(*WorkInstruction)
		w.CheID = args[0].(string)
		w.Status = WIAssigned
		return nil, nil
	})
	wi.method("markComplete", nil, true, func(_ ServiceResolver, o Object, _ []any) (any, error) {
		o.(*WorkInstruction).Status = WIComplete
		return nil, nil
	})
	wi.method("computeLighting", nil, false, func(r ServiceResolver, o Object, _ []any) (any, error) {
		svc, err := r.ResolveService("lighting")
		if err != nil {
			return nil, err
		}
		w := o.(*WorkInstruction)
		return svc.(LightingDirector).LightZone(w.Zone, w.Sequence)
	})

	classes := &Classes{byName: make(map[string]*ClassDescriptor)}
	for _, d := range []*ClassDescriptor{org, fac, net, user, che, wi} {
		classes.byName[d.Name] = d
	}
	return classes
}
