package directory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Seed is the catalogue file format loaded into the in-memory directory.
type Seed struct {
	Clients      []Client      `json:"clients"`
	Experts      []Expert      `json:"experts"`
	Services     []Service     `json:"services"`
	PricingPlans []PricingPlan `json:"pricingPlans"`
}

// LoadSeed reads a JSON catalogue into s.
func (s *InMemoryStore) LoadSeed(r io.Reader) error {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("decode directory seed: %w", err)
	}
	for _, c := range seed.Clients {
		s.PutClient(c)
	}
	for _, e := range seed.Experts {
		s.PutExpert(e)
	}
	for _, svc := range seed.Services {
		s.PutService(svc)
	}
	for _, p := range seed.PricingPlans {
		s.PutPricingPlan(p)
	}
	return nil
}

// LoadSeedFile is LoadSeed over the file at path.
func (s *InMemoryStore) LoadSeedFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open directory seed: %w", err)
	}
	defer f.Close()
	return s.LoadSeed(f)
}
