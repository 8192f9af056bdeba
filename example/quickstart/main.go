// Quickstart wires the whole stack in process memory and walks one
// assessment through its life: a company, a participant, a product with a
// license pool, and a session that is created, filled in, and completed.
// No database is needed; the memory engine and memory stores mirror the
// Postgres implementations' semantics.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/probelab/assesscore/catalog"
	"github.com/probelab/assesscore/command"
	"github.com/probelab/assesscore/domain"
	"github.com/probelab/assesscore/eventstore/memoryengine"
	"github.com/probelab/assesscore/projection"
	"github.com/probelab/assesscore/projection/memorystore"
)

const tenantID = "tenant-quickstart"

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	events := memoryengine.NewEventStore()

	stores := projection.Stores{
		Sessions:     memorystore.NewSessionStore(),
		LicensePools: memorystore.NewLicensePoolStore(),
		Companies:    memorystore.NewCompanyStore(),
		Products:     memorystore.NewProductStore(),
		Participants: memorystore.NewParticipantStore(),
	}

	templates := catalog.NewMemoryCatalog(catalog.Template{
		TemplateID: "tmpl-leadership",
		TenantID:   tenantID,
		Name:       "Leadership Assessment",
		PageCount:  2,
		Questions: []catalog.Question{
			{QuestionID: "q1", Page: 1, Text: "How do you set goals?"},
			{QuestionID: "q2", Page: 2, Text: "How do you give feedback?"},
		},
	})

	companies, err := command.NewCompanyHandler(events, stores)
	if err != nil {
		return err
	}
	participants, err := command.NewParticipantHandler(events, stores)
	if err != nil {
		return err
	}
	products, err := command.NewProductHandler(events, stores)
	if err != nil {
		return err
	}
	pools, err := command.NewLicensePoolHandler(events, stores)
	if err != nil {
		return err
	}
	sessions, err := command.NewSessionHandler(events, stores, templates)
	if err != nil {
		return err
	}

	companyID, err := companies.CreateCompany(ctx, command.CreateCompanyCommand{
		TenantID: tenantID,
		Name:     "Acme Corp",
		Industry: "manufacturing",
		Representative: domain.User{
			Email: "hr@acme.example",
			Name:  "Robin Hall",
			Role:  domain.UserRoleRepresentative,
		},
	})
	if err != nil {
		return err
	}

	participantID, err := participants.RegisterParticipant(ctx, command.RegisterParticipantCommand{
		TenantID:  tenantID,
		Email:     "Jamie.Lee@acme.example",
		FirstName: "Jamie",
		LastName:  "Lee",
		CompanyID: companyID,
	})
	if err != nil {
		return err
	}

	price := decimal.NewFromInt(249)
	productID, err := products.CreateProduct(ctx, command.CreateProductCommand{
		TenantID:   tenantID,
		Name:       "Leadership Assessment",
		TemplateID: "tmpl-leadership",
		Price:      &price,
		Currency:   "EUR",
	})
	if err != nil {
		return err
	}

	poolID, err := pools.CreateLicensePool(ctx, command.CreateLicensePoolCommand{
		TenantID:         tenantID,
		ProductID:        productID,
		InitialLicenses:  10,
		WarningThreshold: 2,
	})
	if err != nil {
		return err
	}

	created, err := sessions.CreateSession(ctx, command.CreateSessionCommand{
		TenantID:       tenantID,
		ParticipantID:  participantID,
		TemplateID:     "tmpl-leadership",
		ExpiresInHours: 72,
	})
	if err != nil {
		return err
	}

	if err := pools.ConsumeLicense(ctx, command.ConsumeLicenseCommand{
		PoolID:    poolID,
		TenantID:  tenantID,
		SessionID: created.SessionID,
	}); err != nil {
		return err
	}

	if err := participants.AssignSession(ctx, command.AssignSessionCommand{
		ParticipantID: participantID,
		TenantID:      tenantID,
		SessionID:     created.SessionID,
	}); err != nil {
		return err
	}

	// The participant only holds the token from here on.
	if err := sessions.StartSession(ctx, command.StartSessionCommand{
		Token:    created.Token,
		TenantID: tenantID,
	}); err != nil {
		return err
	}

	answers := []command.RecordResponseCommand{
		{Token: created.Token, TenantID: tenantID, QuestionID: "q1", Value: "Quarterly OKRs"},
		{Token: created.Token, TenantID: tenantID, QuestionID: "q2", Value: "Weekly one-on-ones"},
	}
	for _, answer := range answers {
		if err := sessions.RecordResponse(ctx, answer); err != nil {
			return err
		}

		if err := sessions.CompletePage(ctx, command.CompletePageCommand{
			Token:    created.Token,
			TenantID: tenantID,
		}); err != nil {
			return err
		}
	}

	doc, err := stores.Sessions.GetSession(ctx, created.SessionID, tenantID)
	if err != nil {
		return err
	}

	pool, err := stores.LicensePools.GetLicensePool(ctx, poolID, tenantID)
	if err != nil {
		return err
	}

	fmt.Printf("session %s: status=%s page=%d responses=%d\n",
		doc.SessionID, doc.Status, doc.CurrentPage, len(doc.Responses))
	fmt.Printf("license pool %s: available=%d warning=%t\n",
		pool.PoolID, pool.Available, pool.Warning)

	return nil
}
