package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/internal/repository"
)

type audienceRepository struct {
	BaseRepository
}

func NewAudienceRepository(base BaseRepository) repository.AudienceRepository {
	return &audienceRepository{base}
}

func (r *audienceRepository) ListCampaignRules(ctx context.Context, campaignID uuid.UUID) ([]*model.AudienceRule, error) {
	query := `
		SELECT * FROM campaign_audience
		WHERE campaign_id = $1 AND status = 'active'
		ORDER BY created_at
	`
	var rules []*model.AudienceRule
	if err := r.db.SelectContext(ctx, &rules, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to list audience rules: %w", err)
	}
	return rules, nil
}

func (r *audienceRepository) ListAssignmentRules(ctx context.Context, assignmentID uuid.UUID) ([]*model.AudienceRule, error) {
	query := `
		SELECT id, assignment_id AS campaign_id, audience_type, audience_group_id,
		       exclude_list, status, created_at, updated_at
		FROM assignment_audience
		WHERE assignment_id = $1 AND status = 'active'
		ORDER BY created_at
	`
	var rules []*model.AudienceRule
	if err := r.db.SelectContext(ctx, &rules, query, assignmentID); err != nil {
		return nil, fmt.Errorf("failed to list assignment audience rules: %w", err)
	}
	return rules, nil
}

// CampaignCandidatesAll selects every active user in the company, minus the
// exclusion list, minus recipients already holding an email log for the
// campaign. Dedup is by email within campaign scope, matching the uniqueness
// constraint backing the insert.
func (r *audienceRepository) CampaignCandidatesAll(ctx context.Context, companyID, campaignID uuid.UUID, exclude []uuid.UUID) ([]repository.Candidate, error) {
	query := `
		SELECT u.id AS user_id, u.email AS user_email, u.first_name, u.last_name
		FROM users u
		WHERE u.company_id = $1
		AND u.status = 'active'
		AND NOT (u.id = ANY($2))
		AND u.email NOT IN (
			SELECT l.user_email FROM email_logs l WHERE l.campaign_id = $3
		)
	`
	var candidates []repository.Candidate
	err := r.db.SelectContext(ctx, &candidates, query, companyID, pq.Array(uuidStrings(exclude)), campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve campaign audience: %w", err)
	}
	return candidates, nil
}

// CampaignCandidatesGroups selects members of the given groups, collapsing
// duplicate users across groups, with the same exclusion and dedup rules.
func (r *audienceRepository) CampaignCandidatesGroups(ctx context.Context, campaignID uuid.UUID, groupIDs, exclude []uuid.UUID) ([]repository.Candidate, error) {
	query := `
		SELECT u.id AS user_id, u.email AS user_email, u.first_name, u.last_name
		FROM groups_relationships gr
		JOIN users u ON u.id = gr.user_id
		WHERE gr.group_id = ANY($1)
		AND u.status = 'active'
		AND NOT (u.id = ANY($2))
		AND u.email NOT IN (
			SELECT l.user_email FROM email_logs l WHERE l.campaign_id = $3
		)
		GROUP BY u.id, u.email, u.first_name, u.last_name
	`
	var candidates []repository.Candidate
	err := r.db.SelectContext(ctx, &candidates, query, pq.Array(uuidStrings(groupIDs)), pq.Array(uuidStrings(exclude)), campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve campaign group audience: %w", err)
	}
	return candidates, nil
}

func (r *audienceRepository) AssignmentCandidatesAll(ctx context.Context, companyID, assignmentID uuid.UUID, exclude []uuid.UUID) ([]repository.Candidate, error) {
	query := `
		SELECT u.id AS user_id, u.email AS user_email, u.first_name, u.last_name
		FROM users u
		WHERE u.company_id = $1
		AND u.status = 'active'
		AND NOT (u.id = ANY($2))
		AND u.email NOT IN (
			SELECT l.user_email FROM assignment_logs l WHERE l.assignment_id = $3
		)
	`
	var candidates []repository.Candidate
	err := r.db.SelectContext(ctx, &candidates, query, companyID, pq.Array(uuidStrings(exclude)), assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assignment audience: %w", err)
	}
	return candidates, nil
}

func (r *audienceRepository) AssignmentCandidatesGroups(ctx context.Context, assignmentID uuid.UUID, groupIDs, exclude []uuid.UUID) ([]repository.Candidate, error) {
	query := `
		SELECT u.id AS user_id, u.email AS user_email, u.first_name, u.last_name
		FROM groups_relationships gr
		JOIN users u ON u.id = gr.user_id
		WHERE gr.group_id = ANY($1)
		AND u.status = 'active'
		AND NOT (u.id = ANY($2))
		AND u.email NOT IN (
			SELECT l.user_email FROM assignment_logs l WHERE l.assignment_id = $3
		)
		GROUP BY u.id, u.email, u.first_name, u.last_name
	`
	var candidates []repository.Candidate
	err := r.db.SelectContext(ctx, &candidates, query, pq.Array(uuidStrings(groupIDs)), pq.Array(uuidStrings(exclude)), assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assignment group audience: %w", err)
	}
	return candidates, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
