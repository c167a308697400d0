package store

import (
	"fmt"

	"github.com/floorlink/backend/internal/domain"
)

// Pre-authentication lookups. Login and NetworkAttach run before a session
// has a tenant scope, so they cannot go through Resolve. These methods are
// the only cross-tenant reads in the store, and each is keyed by an exact
// identifier chain, so there is no cross-tenant scan a client can shape.

// LookupUser finds a user account by id across tenants.
func (m *Memory) LookupUser(userID string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for tenant := range m.objects {
		if obj, ok := m.lookupLocked(tenant, domain.ClassUser, userID); ok {
			return obj.Clone().(*domain.User), nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, domain.ClassUser, userID)
}

func (m *Memory) LookupOrganization(orgID string) (*domain.Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if obj, ok := m.lookupLocked(orgID, domain.ClassOrganization, orgID); ok {
		return obj.Clone().(*domain.Organization), nil
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, domain.ClassOrganization, orgID)
}

// LookupFacility finds a facility by id within an organization. A facility
// id valid in another organization is a miss, not a hit.
func (m *Memory) LookupFacility(orgID, facilityID string) (*domain.Facility, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if obj, ok := m.lookupLocked(orgID, domain.ClassFacility, facilityID); ok {
		f := obj.Clone().(*domain.Facility)
		if f.OrgID == orgID {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, domain.ClassFacility, facilityID)
}

// LookupNetwork finds a network by id and verifies its org->facility chain.
func (m *Memory) LookupNetwork(orgID, facilityID, networkID string) (*domain.Network, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if obj, ok := m.lookupLocked(orgID, domain.ClassNetwork, networkID); ok {
		n := obj.Clone().(*domain.Network)
		if n.OrgID == orgID && n.FacilityID == facilityID {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, domain.ClassNetwork, networkID)
}
