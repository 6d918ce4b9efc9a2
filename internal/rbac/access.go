package rbac

import (
	"context"

	"callcenter-api/internal/apperr"
	"callcenter-api/internal/auth"
)

// CampaignMembership is the store lookup the lead access rule needs.
type CampaignMembership interface {
	IsCampaignAgent(ctx context.Context, campaignID, agentID int64) (bool, error)
}

// CheckCampaignAccess lets admins through and requires any other caller to be
// linked to campaignID. A context without an identity belongs to an internal
// caller (seeding, background jobs) and is not restricted; every HTTP route
// that reaches lead data runs behind the access token middleware.
func CheckCampaignAccess(ctx context.Context, q CampaignMembership, campaignID int64) error {
	id, err := auth.IdentityFrom(ctx)
	if err != nil || IsAdmin(id.Role) {
		return nil
	}
	ok, err := q.IsCampaignAgent(ctx, campaignID, id.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("You are not assigned to this campaign")
	}
	return nil
}
