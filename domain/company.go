package domain

import (
	"time"
)

// UserRole is the role of a user embedded in a company.
type UserRole string

const (
	// UserRoleRepresentative is the company's primary contact, created
	// implicitly with the company itself.
	UserRoleRepresentative UserRole = "representative"
	// UserRoleConsultant is an additional user managing assessments.
	UserRoleConsultant UserRole = "consultant"
)

// User is a company-embedded user. Users have no aggregate of their own; they
// live and die with their company.
type User struct {
	UserID string
	Email  string
	Name   string
	Role   UserRole
}

// Company event type identifiers.
const (
	CompanyCreatedEventType     = "CompanyCreated"
	UserAddedEventType          = "UserAdded"
	CompanyUpdatedEventType     = "CompanyUpdated"
	CompanyDeactivatedEventType = "CompanyDeactivated"
)

// CompanyCreated records the creation of a company together with its first
// embedded user, the representative.
type CompanyCreated struct {
	Name           string
	Industry       string
	Representative User
}

func (CompanyCreated) IsEventType() string     { return CompanyCreatedEventType }
func (CompanyCreated) IsAggregateType() string { return AggregateTypeCompany }

// UserAdded records an additional user joining the company.
type UserAdded struct {
	User User
}

func (UserAdded) IsEventType() string     { return UserAddedEventType }
func (UserAdded) IsAggregateType() string { return AggregateTypeCompany }

// CompanyUpdated records changes to company metadata. Empty fields are
// unchanged.
type CompanyUpdated struct {
	Name     string
	Industry string
	Address  string
}

func (CompanyUpdated) IsEventType() string     { return CompanyUpdatedEventType }
func (CompanyUpdated) IsAggregateType() string { return AggregateTypeCompany }

// CompanyDeactivated records the transition into the deactivated terminal
// state.
type CompanyDeactivated struct {
	Reason        string
	DeactivatedAt time.Time
}

func (CompanyDeactivated) IsEventType() string     { return CompanyDeactivatedEventType }
func (CompanyDeactivated) IsAggregateType() string { return AggregateTypeCompany }

// Company is the aggregate for one customer organization and its embedded
// users. Deactivation is terminal and blocks all state-changing commands.
type Company struct {
	Root

	name        string
	industry    string
	address     string
	users       []User
	deactivated bool
}

// NewCompany returns a fresh Company ready for replay.
func NewCompany() *Company {
	return &Company{}
}

// LoadCompanyFromHistory replays persisted events into a fresh Company.
func LoadCompanyFromHistory(history Events) (*Company, error) {
	c := NewCompany()
	if err := replay(c, history); err != nil {
		return nil, err
	}

	return c, nil
}

// Create raises the creation event, embedding the representative as the first
// user. Representative emails are stored as given; unlike Participant emails
// they are not lower-cased.
func (c *Company) Create(
	companyID string,
	tenantID string,
	name string,
	industry string,
	representative User,
	now time.Time,
	metadata Metadata,
) error {

	if c.exists() {
		return NewError("Company already exists")
	}

	if name == "" {
		return NewError("Company name must not be empty")
	}

	if representative.Email == "" {
		return NewError("Representative email must not be empty")
	}

	representative.Role = UserRoleRepresentative

	return raise(c, companyID, tenantID, CompanyCreated{
		Name:           name,
		Industry:       industry,
		Representative: representative,
	}, now, metadata)
}

// AddUser embeds an additional user. The email must be unique within this
// company; the identical email on a different company is fine.
func (c *Company) AddUser(user User, now time.Time, metadata Metadata) error {
	if !c.exists() {
		return NewError("Company does not exist")
	}

	if c.deactivated {
		return NewError("Company is deactivated")
	}

	if user.Role != UserRoleRepresentative && user.Role != UserRoleConsultant {
		return Errorf("Invalid user role %s", user.Role)
	}

	for _, existing := range c.users {
		if existing.Email == user.Email {
			return NewError("User with this email already exists")
		}
	}

	return raise(c, c.id, c.tenantID, UserAdded{User: user}, now, metadata)
}

// Update changes company metadata. Empty fields are left unchanged.
func (c *Company) Update(name string, industry string, address string, now time.Time, metadata Metadata) error {
	if !c.exists() {
		return NewError("Company does not exist")
	}

	if c.deactivated {
		return NewError("Company is deactivated")
	}

	return raise(c, c.id, c.tenantID, CompanyUpdated{
		Name:     name,
		Industry: industry,
		Address:  address,
	}, now, metadata)
}

// Deactivate transitions the company into the deactivated terminal state.
func (c *Company) Deactivate(reason string, now time.Time, metadata Metadata) error {
	if !c.exists() {
		return NewError("Company does not exist")
	}

	if c.deactivated {
		return NewError("Company is deactivated")
	}

	return raise(c, c.id, c.tenantID, CompanyDeactivated{
		Reason:        reason,
		DeactivatedAt: now,
	}, now, metadata)
}

// Name returns the company name.
func (c *Company) Name() string {
	return c.name
}

// Users returns the embedded users in the order they were added, starting
// with the representative.
func (c *Company) Users() []User {
	users := make([]User, len(c.users))
	copy(users, c.users)
	return users
}

// IsDeactivated reports whether the company is in the terminal state.
func (c *Company) IsDeactivated() bool {
	return c.deactivated
}

func (c *Company) root() *Root {
	return &c.Root
}

func (c *Company) apply(event Event) error {
	switch payload := event.Payload.(type) {
	case CompanyCreated:
		c.name = payload.Name
		c.industry = payload.Industry
		c.users = []User{payload.Representative}

	case UserAdded:
		c.users = append(c.users, payload.User)

	case CompanyUpdated:
		if payload.Name != "" {
			c.name = payload.Name
		}
		if payload.Industry != "" {
			c.industry = payload.Industry
		}
		if payload.Address != "" {
			c.address = payload.Address
		}

	case CompanyDeactivated:
		c.deactivated = true

	default:
		return Errorf("unhandled event type %s for Company", event.EventType)
	}

	return nil
}
