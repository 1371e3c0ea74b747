// Package audience resolves declarative targeting rules into the concrete
// recipient logs a shoot run inserts.
package audience

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
	"github.com/phishsentinel/phishsentinel-api/pkg/logger"
)

// Resolver turns a campaign's (or assignment's) audience rules into
// deduplicated candidate recipients and builds the recipient logs ready
// for bulk insert. Already-notified recipients are filtered out at the
// query level; the unique constraint on the log table backs that filter
// under concurrent runs.
type Resolver struct {
	audienceRepo repository.AudienceRepository
	templateRepo repository.EmailTemplateRepository
	domainRepo   repository.DomainRepository
	logger       *logger.Logger
}

func NewResolver(
	audienceRepo repository.AudienceRepository,
	templateRepo repository.EmailTemplateRepository,
	domainRepo repository.DomainRepository,
	logger *logger.Logger,
) *Resolver {
	return &Resolver{
		audienceRepo: audienceRepo,
		templateRepo: templateRepo,
		domainRepo:   domainRepo,
		logger:       logger,
	}
}

// ResolveCampaign returns the candidates for every rule attached to the
// campaign, unioned and deduplicated. A single `all` rule short-circuits
// the group path; group, department and tag rules all carry a group
// reference and share the membership query.
func (r *Resolver) ResolveCampaign(ctx context.Context, campaign *model.Campaign) ([]repository.Candidate, error) {
	rules, err := r.audienceRepo.ListCampaignRules(ctx, campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audience rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	if hasAllRule(rules) {
		return r.audienceRepo.CampaignCandidatesAll(ctx, campaign.CompanyID, campaign.ID, mergeExcludes(rules))
	}

	groupIDs := ruleGroupIDs(rules)
	if len(groupIDs) == 0 {
		return nil, nil
	}
	return r.audienceRepo.CampaignCandidatesGroups(ctx, campaign.ID, groupIDs, mergeExcludes(rules))
}

// ResolveAssignment mirrors ResolveCampaign against the assignment log
// table so repeated shoots never re-enroll a recipient.
func (r *Resolver) ResolveAssignment(ctx context.Context, assignment *model.Assignment) ([]repository.Candidate, error) {
	rules, err := r.audienceRepo.ListAssignmentRules(ctx, assignment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audience rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}

	if hasAllRule(rules) {
		return r.audienceRepo.AssignmentCandidatesAll(ctx, assignment.CompanyID, assignment.ID, mergeExcludes(rules))
	}

	groupIDs := ruleGroupIDs(rules)
	if len(groupIDs) == 0 {
		return nil, nil
	}
	return r.audienceRepo.AssignmentCandidatesGroups(ctx, assignment.ID, groupIDs, mergeExcludes(rules))
}

// BuildEmailLogs renders the per-recipient logs for a campaign shoot. The
// landing URL ends in `secret_key=` so the dispatcher can append each
// recipient's secret at render time. Advance campaigns materialize as
// `schedule`, everything else as `pending`.
func (r *Resolver) BuildEmailLogs(ctx context.Context, campaign *model.Campaign, candidates []repository.Candidate) ([]*model.EmailLog, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	tmpl, err := r.templateRepo.Get(ctx, campaign.EmailTemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load email template: %w", err)
	}
	domain, err := r.domainRepo.Get(ctx, campaign.DomainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load domain: %w", err)
	}

	landingURL := fmt.Sprintf("https://%s?pageid=%s&secret_key=", domain.Title, campaign.LandingPageID)
	status := model.EmailLogStatusPending
	if campaign.Type == model.CampaignTypeAdvance {
		status = model.EmailLogStatusSchedule
	}

	logs := make([]*model.EmailLog, 0, len(candidates))
	for _, c := range candidates {
		logs = append(logs, &model.EmailLog{
			CampaignID:   campaign.ID,
			UserID:       c.UserID,
			UserEmail:    c.Email,
			Status:       status,
			EmailContent: tmpl.HTMLContent,
			Placeholders: model.Placeholders{
				FirstName: c.FirstName,
				LastName:  c.LastName,
				URL:       landingURL,
			},
			SenderMeta: model.SenderMeta{
				FromName:  tmpl.FromName,
				FromEmail: tmpl.FromEmail,
				Subject:   tmpl.Subject,
				Headers:   tmpl.EmailHeaders,
			},
		})
	}
	return logs, nil
}

// BuildAssignmentLogs renders enrollment logs from the assignment's
// enrollment template.
func (r *Resolver) BuildAssignmentLogs(assignment *model.Assignment, tmpl *model.EmailTemplate, candidates []repository.Candidate) []*model.AssignmentLog {
	logs := make([]*model.AssignmentLog, 0, len(candidates))
	for _, c := range candidates {
		logs = append(logs, &model.AssignmentLog{
			AssignmentID: assignment.ID,
			UserID:       c.UserID,
			UserEmail:    c.Email,
			Status:       model.EmailLogStatusPending,
			EmailContent: tmpl.HTMLContent,
			Placeholders: model.Placeholders{
				FirstName: c.FirstName,
				LastName:  c.LastName,
			},
			SenderMeta: model.SenderMeta{
				FromName:  tmpl.FromName,
				FromEmail: tmpl.FromEmail,
				Subject:   tmpl.Subject,
				Headers:   tmpl.EmailHeaders,
			},
		})
	}
	return logs
}

func hasAllRule(rules []*model.AudienceRule) bool {
	for _, rule := range rules {
		if rule.AudienceType == model.AudienceTypeAll {
			return true
		}
	}
	return false
}

func ruleGroupIDs(rules []*model.AudienceRule) []uuid.UUID {
	var ids []uuid.UUID
	for _, rule := range rules {
		if rule.GroupID != nil {
			ids = append(ids, *rule.GroupID)
		}
	}
	return ids
}

func mergeExcludes(rules []*model.AudienceRule) []uuid.UUID {
	var ids []uuid.UUID
	for _, rule := range rules {
		ids = append(ids, rule.ExcludedIDs()...)
	}
	return ids
}
