package commission

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/focep/collecte-engine/generic"
)

// SplitPolicy holds the revenue-sharing constants. The EMF share is the
// complement of the collector share so the two parts always sum to the
// commission.
type SplitPolicy struct {
	CollecteurShare decimal.Decimal
	TVARate         decimal.Decimal
}

// DefaultSplitPolicy is 70 % collector / 30 % EMF with TVA at 19.25 %.
func DefaultSplitPolicy() SplitPolicy {
	return SplitPolicy{
		CollecteurShare: decimal.RequireFromString("0.70"),
		TVARate:         decimal.RequireFromString("0.1925"),
	}
}

func (p SplitPolicy) EMFShare() decimal.Decimal {
	return one.Sub(p.CollecteurShare)
}

func (p SplitPolicy) Validate() error {
	if p.CollecteurShare.IsNegative() || p.CollecteurShare.GreaterThan(one) {
		return fmt.Errorf("collecteur share must be in [0, 1], got %s", p.CollecteurShare)
	}
	if p.TVARate.IsNegative() || p.TVARate.GreaterThan(one) {
		return fmt.Errorf("TVA rate must be in [0, 1], got %s", p.TVARate)
	}
	return nil
}

// Split is the breakdown of an adjusted commission.
type Split struct {
	PartCollecteur generic.Amount
	PartEMF        generic.Amount // gross, TVA included
	MontantTVA     generic.Amount // charged on PartEMF
	PartEMFNet     generic.Amount // PartEMF - MontantTVA
	MontantTotal   generic.Amount // == adjusted commission
}

type Splitter struct {
	policy SplitPolicy
}

func NewSplitter(policy SplitPolicy) *Splitter {
	return &Splitter{policy: policy}
}

func (s *Splitter) Policy() SplitPolicy { return s.policy }

// Split divides x. PartCollecteur + PartEMF == x exactly.
func (s *Splitter) Split(x generic.Amount) Split {
	collecteur := x.Mul(s.policy.CollecteurShare)
	emf := x.Sub(collecteur)
	tva := emf.Mul(s.policy.TVARate)
	return Split{
		PartCollecteur: collecteur,
		PartEMF:        emf,
		MontantTVA:     tva,
		PartEMFNet:     emf.Sub(tva),
		MontantTotal:   x,
	}
}
