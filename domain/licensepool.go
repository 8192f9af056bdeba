package domain

import (
	"time"
)

// LicensePool event type identifiers.
const (
	LicensePoolCreatedEventType = "LicensePoolCreated"
	LicenseConsumedEventType    = "LicenseConsumed"
	LicensesAddedEventType      = "LicensesAdded"
	LicenseReleasedEventType    = "LicenseReleased"
)

// LicensePoolCreated records the creation of a license pool for a product.
type LicensePoolCreated struct {
	ProductID        string
	InitialLicenses  int
	WarningThreshold int
}

func (LicensePoolCreated) IsEventType() string     { return LicensePoolCreatedEventType }
func (LicensePoolCreated) IsAggregateType() string { return AggregateTypeLicensePool }

// LicenseConsumed records one license being consumed by a session.
type LicenseConsumed struct {
	SessionID string
}

func (LicenseConsumed) IsEventType() string     { return LicenseConsumedEventType }
func (LicenseConsumed) IsAggregateType() string { return AggregateTypeLicensePool }

// LicensesAdded records a top-up of the pool.
type LicensesAdded struct {
	Count  int
	Reason string
}

func (LicensesAdded) IsEventType() string     { return LicensesAddedEventType }
func (LicensesAdded) IsAggregateType() string { return AggregateTypeLicensePool }

// LicenseReleased is the compensating event for LicenseConsumed. There is no
// guard against releasing more than was consumed; callers must never release
// speculatively.
type LicenseReleased struct {
	SessionID string
	Reason    string
}

func (LicenseReleased) IsEventType() string     { return LicenseReleasedEventType }
func (LicenseReleased) IsAggregateType() string { return AggregateTypeLicensePool }

// LicensePool is the aggregate tracking license inventory for one product
// within one tenant. Invariant: available = total - consumed, never negative
// across any sequence of individually successful commands.
type LicensePool struct {
	Root

	productID        string
	total            int
	consumed         int
	warningThreshold int
}

// NewLicensePool returns a fresh LicensePool ready for replay.
func NewLicensePool() *LicensePool {
	return &LicensePool{}
}

// LoadLicensePoolFromHistory replays persisted events into a fresh LicensePool.
func LoadLicensePoolFromHistory(history Events) (*LicensePool, error) {
	p := NewLicensePool()
	if err := replay(p, history); err != nil {
		return nil, err
	}

	return p, nil
}

// Create raises the creation event.
func (p *LicensePool) Create(
	poolID string,
	tenantID string,
	productID string,
	initialLicenses int,
	warningThreshold int,
	now time.Time,
	metadata Metadata,
) error {

	if p.exists() {
		return NewError("LicensePool already exists")
	}

	if initialLicenses < 0 {
		return NewError("Initial licenses must not be negative")
	}

	if warningThreshold < 0 {
		return NewError("Warning threshold must not be negative")
	}

	return raise(p, poolID, tenantID, LicensePoolCreated{
		ProductID:        productID,
		InitialLicenses:  initialLicenses,
		WarningThreshold: warningThreshold,
	}, now, metadata)
}

// Consume takes one license for the given session.
func (p *LicensePool) Consume(sessionID string, now time.Time, metadata Metadata) error {
	if !p.exists() {
		return NewError("LicensePool does not exist")
	}

	if p.Available() == 0 {
		return NewError("No licenses available")
	}

	return raise(p, p.id, p.tenantID, LicenseConsumed{SessionID: sessionID}, now, metadata)
}

// AddLicenses tops up the pool.
func (p *LicensePool) AddLicenses(count int, reason string, now time.Time, metadata Metadata) error {
	if !p.exists() {
		return NewError("LicensePool does not exist")
	}

	if count <= 0 {
		return NewError("License count must be positive")
	}

	return raise(p, p.id, p.tenantID, LicensesAdded{Count: count, Reason: reason}, now, metadata)
}

// Release returns one consumed license to the pool. Deliberately unguarded
// against over-release; see LicenseReleased.
func (p *LicensePool) Release(sessionID string, reason string, now time.Time, metadata Metadata) error {
	if !p.exists() {
		return NewError("LicensePool does not exist")
	}

	return raise(p, p.id, p.tenantID, LicenseReleased{SessionID: sessionID, Reason: reason}, now, metadata)
}

// ProductID returns the product this pool licenses.
func (p *LicensePool) ProductID() string {
	return p.productID
}

// Total returns the total number of licenses ever added to the pool.
func (p *LicensePool) Total() int {
	return p.total
}

// Consumed returns the number of currently consumed licenses.
func (p *LicensePool) Consumed() int {
	return p.consumed
}

// Available returns total minus consumed.
func (p *LicensePool) Available() int {
	return p.total - p.consumed
}

// WarningThreshold returns the configured low-inventory threshold.
func (p *LicensePool) WarningThreshold() int {
	return p.warningThreshold
}

// IsBelowThreshold reports whether available licenses are at or below the
// warning threshold.
func (p *LicensePool) IsBelowThreshold() bool {
	return p.Available() <= p.warningThreshold
}

// IsWarning is an alias for IsBelowThreshold.
func (p *LicensePool) IsWarning() bool {
	return p.IsBelowThreshold()
}

// IsDepleted reports whether no licenses are available.
func (p *LicensePool) IsDepleted() bool {
	return p.Available() == 0
}

func (p *LicensePool) root() *Root {
	return &p.Root
}

func (p *LicensePool) apply(event Event) error {
	switch payload := event.Payload.(type) {
	case LicensePoolCreated:
		p.productID = payload.ProductID
		p.total = payload.InitialLicenses
		p.consumed = 0
		p.warningThreshold = payload.WarningThreshold

	case LicenseConsumed:
		p.consumed++

	case LicensesAdded:
		p.total += payload.Count

	case LicenseReleased:
		p.consumed--

	default:
		return Errorf("unhandled event type %s for LicensePool", event.EventType)
	}

	return nil
}
