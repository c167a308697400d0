package service

import "fmt"

// Stand-in implementations of the business collaborators. The real route
// and lighting engines live outside this subsystem; these satisfy the
// domain contracts so InvokeMethod accessors have something to delegate to.

// Routes computes a trivial zone-to-zone path.
type Routes struct{}

func (Routes) ComputeRoute(cheID, fromZone, toZone string) ([]string, error) {
	if toZone == "" {
		return nil, fmt.Errorf("route: empty destination zone for che %s", cheID)
	}
	if fromZone == "" || fromZone == toZone {
		return []string{toZone}, nil
	}
	return []string{fromZone, toZone}, nil
}

// Lighting emits a pick-light instruction string for a zone.
type Lighting struct{}

func (Lighting) LightZone(zone string, sequence int) (string, error) {
	if zone == "" {
		return "", fmt.Errorf("lighting: empty zone")
	}
	return fmt.Sprintf("LIGHT %s SEQ %d", zone, sequence), nil
}
