// Package sim drives randomized floor activity through the real store so
// the whole command/notify path can be exercised without hardware. Enabled
// with the -sim flag.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/floorlink/backend/internal/domain"
	"github.com/floorlink/backend/internal/store"
)

const (
	OrgID      = "org-acme"
	FacilityID = "fac-1"
	NetworkID  = "net-1"
	NetworkKey = "floor-key-1"
	UserID     = "op1"
	Password   = "secret"
	GatewayID  = "gw1"
)

var zones = []string{"A1", "A2", "B1", "B2", "C1"}

// Generator mutates CHEs and work instructions on a ticker. All writes go
// through the Provider, so every tick exercises commit hooks and fan-out
// exactly as real traffic would.
type Generator struct {
	store    *store.Memory
	interval time.Duration
	rng      *rand.Rand
	nextWI   int
}

func NewGenerator(st *store.Memory, interval time.Duration) *Generator {
	if interval <= 0 {
		interval = time.Second
	}
	return &Generator{
		store:    st,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		nextWI:   100,
	}
}

// Seed loads the demo tenant: one organization with a facility, a network,
// two user accounts, three CHEs, and a handful of work instructions.
func (g *Generator) Seed() {
	operatorHash, _ := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.DefaultCost)
	gatewayHash, _ := bcrypt.GenerateFromPassword([]byte("gateway-secret"), bcrypt.DefaultCost)

	g.store.Seed(
		&domain.Organization{ID: OrgID, Name: "Acme Distribution"},
		&domain.Facility{ID: FacilityID, OrgID: OrgID, Name: "DC East"},
		&domain.Network{ID: NetworkID, OrgID: OrgID, FacilityID: FacilityID, Name: "Floor 1", Credential: NetworkKey},
		&domain.User{ID: UserID, OrgID: OrgID, Name: "Operator One", PasswordHash: string(operatorHash)},
		&domain.User{ID: GatewayID, OrgID: OrgID, Name: "Site Gateway", PasswordHash: string(gatewayHash), SiteGateway: true},
		&domain.Che{ID: "che-1", OrgID: OrgID, Name: "Cart 1", Zone: "A1", Status: domain.CheIdle, Battery: 97},
		&domain.Che{ID: "che-2", OrgID: OrgID, Name: "Cart 2", Zone: "B1", Status: domain.CheIdle, Battery: 88},
		&domain.Che{ID: "che-3", OrgID: OrgID, Name: "Cart 3", Zone: "C1", Status: domain.CheCharging, Battery: 35},
	)

	for i := 0; i < 5; i++ {
		g.store.Seed(&domain.WorkInstruction{
			ID:       fmt.Sprintf("wi-%d", i+1),
			OrgID:    OrgID,
			Zone:     zones[i%len(zones)],
			Status:   domain.WINew,
			Sequence: i + 1,
			Priority: 1 + i%3,
		})
	}
}

func (g *Generator) Start(ctx context.Context) {
	go g.run(ctx)
}

func (g *Generator) run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.tick(); err != nil {
				log.Warn().Err(err).Msg("sim tick failed")
			}
		}
	}
}

// tick advances one random CHE and one random work instruction.
func (g *Generator) tick() error {
	if err := g.moveChe(); err != nil {
		return err
	}
	return g.advanceWork()
}

func (g *Generator) moveChe() error {
	repo, err := g.store.Resolve(domain.ClassChe, OrgID)
	if err != nil {
		return err
	}
	id := fmt.Sprintf("che-%d", 1+g.rng.Intn(3))
	obj, err := repo.FindByID(id)
	if err != nil {
		return err
	}
	che := obj.(*domain.Che)

	che.Zone = zones[g.rng.Intn(len(zones))]
	che.Battery -= g.rng.Intn(2)
	if che.Battery < 10 {
		che.Battery = 100
		che.Status = domain.CheCharging
	} else if che.Status != domain.CheFault {
		che.Status = domain.CheMoving
	}
	return repo.Store(che)
}

func (g *Generator) advanceWork() error {
	repo, err := g.store.Resolve(domain.ClassWorkInstruction, OrgID)
	if err != nil {
		return err
	}

	open, err := repo.FindByFilter("status in :open", map[string]any{
		"open": []any{domain.WINew, domain.WIAssigned, domain.WIActive},
	}, 0)
	if err != nil {
		return err
	}

	if len(open) == 0 || g.rng.Intn(4) == 0 {
		g.nextWI++
		return repo.Store(&domain.WorkInstruction{
			ID:       fmt.Sprintf("wi-%d", g.nextWI),
			OrgID:    OrgID,
			Zone:     zones[g.rng.Intn(len(zones))],
			Status:   domain.WINew,
			Sequence: g.nextWI,
			Priority: 1 + g.rng.Intn(3),
		})
	}

	wi := open[g.rng.Intn(len(open))].(*domain.WorkInstruction)
	switch wi.Status {
	case domain.WINew:
		wi.Status = domain.WIAssigned
		wi.CheID = fmt.Sprintf("che-%d", 1+g.rng.Intn(3))
	case domain.WIAssigned:
		wi.Status = domain.WIActive
	case domain.WIActive:
		wi.Status = domain.WIComplete
	}
	return repo.Store(wi)
}
