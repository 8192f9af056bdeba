package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/probelab/assesscore/domain"
)

func Test_Company_Create_EmbedsRepresentativeAsFirstUser(t *testing.T) {
	// arrange
	now := time.Now()
	company := domain.NewCompany()

	// act
	err := company.Create(uuid.NewString(), uuid.NewString(), "Acme Corp", "manufacturing", domain.User{
		UserID: uuid.NewString(),
		Email:  "rep@acme.example",
		Name:   "Rita Rep",
	}, now, domain.Metadata{})

	// assert
	assert.NoError(t, err)
	users := company.Users()
	assert.Len(t, users, 1)
	assert.Equal(t, "rep@acme.example", users[0].Email)
	assert.Equal(t, domain.UserRoleRepresentative, users[0].Role)
}

func Test_Company_AddUser_FailsOnDuplicateEmail(t *testing.T) {
	// arrange
	now := time.Now()
	company := givenCompany(t, "dup@acme.example", now)

	// act
	err := company.AddUser(domain.User{
		UserID: uuid.NewString(),
		Email:  "dup@acme.example",
		Name:   "Second Dup",
		Role:   domain.UserRoleConsultant,
	}, now, domain.Metadata{})

	// assert
	assert.ErrorContains(t, err, "User with this email already exists")
	assert.Len(t, company.Users(), 1)
}

func Test_Company_AddUser_EmailUniquenessIsCaseSensitive(t *testing.T) {
	// arrange - company user emails are matched exactly as given
	now := time.Now()
	company := givenCompany(t, "rep@acme.example", now)

	// act
	err := company.AddUser(domain.User{
		UserID: uuid.NewString(),
		Email:  "REP@acme.example",
		Name:   "Shouty Rep",
		Role:   domain.UserRoleConsultant,
	}, now, domain.Metadata{})

	// assert
	assert.NoError(t, err)
	assert.Len(t, company.Users(), 2)
}

func Test_Company_SameEmailOnDifferentCompaniesIsFine(t *testing.T) {
	// arrange
	now := time.Now()
	first := givenCompany(t, "shared@example.com", now)

	// act - a second, independent company with the same representative email
	second := domain.NewCompany()
	err := second.Create(uuid.NewString(), first.TenantID(), "Other Corp", "retail", domain.User{
		UserID: uuid.NewString(),
		Email:  "shared@example.com",
		Name:   "Same Person",
	}, now, domain.Metadata{})

	// assert
	assert.NoError(t, err)
}

func Test_Company_AddUser_RejectsUnknownRole(t *testing.T) {
	// arrange
	now := time.Now()
	company := givenCompany(t, "rep@acme.example", now)

	// act
	err := company.AddUser(domain.User{
		UserID: uuid.NewString(),
		Email:  "new@acme.example",
		Role:   domain.UserRole("admin"),
	}, now, domain.Metadata{})

	// assert
	assert.ErrorContains(t, err, "Invalid user role admin")
}

func Test_Company_Update_LeavesEmptyFieldsUnchanged(t *testing.T) {
	// arrange
	now := time.Now()
	company := givenCompany(t, "rep@acme.example", now)

	// act
	err := company.Update("", "logistics", "", now, domain.Metadata{})

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "Acme Corp", company.Name())
}

func Test_Company_Deactivate_IsTerminal(t *testing.T) {
	// arrange
	now := time.Now()
	company := givenCompany(t, "rep@acme.example", now)

	// act
	err := company.Deactivate("contract ended", now, domain.Metadata{})
	assert.NoError(t, err)

	// assert - every further command fails the same way
	assert.True(t, company.IsDeactivated())
	assert.ErrorContains(t, company.AddUser(domain.User{
		Email: "late@acme.example", Role: domain.UserRoleConsultant,
	}, now, domain.Metadata{}), "Company is deactivated")
	assert.ErrorContains(t, company.Update("New Name", "", "", now, domain.Metadata{}), "Company is deactivated")
	assert.ErrorContains(t, company.Deactivate("again", now, domain.Metadata{}), "Company is deactivated")
}

func Test_Company_Create_FailsWhenAlreadyCreated(t *testing.T) {
	// arrange
	now := time.Now()
	company := givenCompany(t, "rep@acme.example", now)

	// act
	err := company.Create(company.ID(), company.TenantID(), "Acme Corp", "", domain.User{Email: "x@y.z"}, now, domain.Metadata{})

	// assert
	assert.ErrorContains(t, err, "Company already exists")
}

func Test_Company_ReplayReproducesState(t *testing.T) {
	// arrange
	now := time.Now()
	original := givenCompany(t, "rep@acme.example", now)
	assert.NoError(t, original.AddUser(domain.User{
		UserID: uuid.NewString(), Email: "c1@acme.example", Role: domain.UserRoleConsultant,
	}, now, domain.Metadata{}))

	// act
	replayed, err := domain.LoadCompanyFromHistory(original.UncommittedEvents())

	// assert
	assert.NoError(t, err)
	assert.Equal(t, original.Name(), replayed.Name())
	assert.Equal(t, original.Users(), replayed.Users())
	assert.Equal(t, original.Version(), replayed.Version())
}

func givenCompany(t *testing.T, representativeEmail string, now time.Time) *domain.Company {
	t.Helper()

	company := domain.NewCompany()
	err := company.Create(uuid.NewString(), uuid.NewString(), "Acme Corp", "manufacturing", domain.User{
		UserID: uuid.NewString(),
		Email:  representativeEmail,
		Name:   "Rita Rep",
	}, now, domain.Metadata{})
	assert.NoError(t, err)

	return company
}
