package handler

import (
	"time"

	"happymeter-backend/internal/domain"
)

func customerPayload(c domain.Customer) map[string]any {
	payload := map[string]any{
		"id":            c.ID,
		"programId":     c.ProgramID,
		"name":          c.Name,
		"email":         c.Email,
		"phone":         c.Phone,
		"photoUrl":      c.PhotoURL,
		"totalVisits":   c.TotalVisits,
		"currentVisits": c.CurrentVisits,
		"totalPoints":   c.TotalPoints,
		"currentPoints": c.CurrentPoints,
		"averageRating": c.AverageRating,
		"ratingCount":   c.RatingCount,
	}
	if c.LastVisitAt != nil {
		payload["lastVisitAt"] = c.LastVisitAt.Format(time.RFC3339)
	}
	if c.TierID != nil {
		payload["tierId"] = *c.TierID
	}
	return payload
}

func programPayload(p domain.Program) map[string]any {
	return map[string]any{
		"id":                 p.ID,
		"name":               p.Name,
		"pointsPercentage":   p.PointsPercentage,
		"firstVisitGift":     p.FirstVisitGift,
		"firstVisitGiftText": p.FirstVisitGiftText,
		"themeColor":         p.ThemeColor,
		"logoUrl":            p.LogoURL,
	}
}

func rewardPayload(r domain.Reward) map[string]any {
	return map[string]any{
		"id":          r.ID,
		"name":        r.Name,
		"description": r.Description,
		"costVisits":  r.CostVisits,
		"costPoints":  r.CostPoints,
		"isActive":    r.IsActive,
		"isGift":      r.IsGift(),
	}
}

func tierPayload(t domain.Tier) map[string]any {
	return map[string]any{
		"id":             t.ID,
		"position":       t.Position,
		"name":           t.Name,
		"requiredVisits": t.RequiredVisits,
		"requiredPoints": t.RequiredPoints,
		"color":          t.Color,
		"benefits":       t.Benefits,
	}
}

func redemptionPayload(red domain.Redemption) map[string]any {
	payload := map[string]any{
		"id":        red.ID,
		"rewardId":  red.RewardID,
		"code":      red.Code,
		"status":    string(red.Status),
		"createdAt": red.CreatedAt.Format(time.RFC3339),
	}
	if red.RedeemedAt != nil {
		payload["redeemedAt"] = red.RedeemedAt.Format(time.RFC3339)
	}
	return payload
}

func eventPayload(e domain.CustomerEvent) map[string]any {
	payload := map[string]any{
		"id":        e.ID,
		"type":      string(e.Type),
		"createdAt": e.CreatedAt.Format(time.RFC3339),
	}
	if e.TierID != nil {
		payload["tierId"] = *e.TierID
	}
	return payload
}

func promotionPayload(p domain.Promotion) map[string]any {
	payload := map[string]any{
		"id":       p.ID,
		"title":    p.Title,
		"body":     p.Body,
		"isActive": p.IsActive,
	}
	if p.StartsAt != nil {
		payload["startsAt"] = p.StartsAt.Format(time.RFC3339)
	}
	if p.EndsAt != nil {
		payload["endsAt"] = p.EndsAt.Format(time.RFC3339)
	}
	return payload
}
