package llm

import "fmt"

// Pool is the immutable-after-init mapping of family to its ordered
// instance list, plus the set of enabled families.
type Pool struct {
	Enabled   []Family
	Instances map[Family][]*Instance
}

// FamilyKeyConfig is one key record under a family in the config file.
type FamilyKeyConfig struct {
	APIKey    string
	APIBase   string
	Model     string
	RateLimit int
}

// PoolConfig is the minimal shape BuildPool needs: which families are
// enabled and, for each, its ordered list of key records.
type PoolConfig struct {
	Use   []Family
	Keys  map[Family][]FamilyKeyConfig
}

// defaultRateLimit is used when a key record omits rate_limit.
const defaultRateLimit = 20

// BuildPool constructs a Pool by iterating each enabled family's key list in
// declaration order and creating one Instance per entry, per section 4.5.
func BuildPool(cfg PoolConfig) (*Pool, error) {
	if len(cfg.Use) == 0 {
		return nil, errConfig("llm.use must name at least one family")
	}

	pool := &Pool{
		Enabled:   cfg.Use,
		Instances: make(map[Family][]*Instance),
	}

	for _, family := range cfg.Use {
		records, ok := cfg.Keys[family]
		if !ok || len(records) == 0 {
			return nil, errConfig(fmt.Sprintf("family %s is enabled but has no key records", family))
		}

		instances := make([]*Instance, 0, len(records))
		for i, rec := range records {
			if rec.APIBase == "" {
				return nil, errConfig(fmt.Sprintf("family %s entry %d: api_base is required", family, i))
			}
			if rec.Model == "" {
				return nil, errConfig(fmt.Sprintf("family %s entry %d: model is required", family, i))
			}
			rateLimit := rec.RateLimit
			if rateLimit <= 0 {
				rateLimit = defaultRateLimit
			}
			id := fmt.Sprintf("%s#%d", family, i)
			instances = append(instances, NewInstance(id, family, rec.APIKey, rec.APIBase, rec.Model, rateLimit))
		}
		pool.Instances[family] = instances
	}

	return pool, nil
}

// Candidates returns every instance across enabled families supporting kind,
// optionally filtered to one pinned family.
func (p *Pool) Candidates(kind RequestKind, pin Family, supports func(Family, RequestKind) bool) []*Instance {
	var out []*Instance
	families := p.Enabled
	if pin != "" {
		families = []Family{pin}
	}
	for _, family := range families {
		if !supports(family, kind) {
			continue
		}
		out = append(out, p.Instances[family]...)
	}
	return out
}

// All returns every instance in the pool, across all enabled families.
func (p *Pool) All() []*Instance {
	var out []*Instance
	for _, family := range p.Enabled {
		out = append(out, p.Instances[family]...)
	}
	return out
}
