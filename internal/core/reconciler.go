package core

import (
	"context"
	"errors"
	"strings"
)

// Default lead source labels for rows coming from the lead-form sheet.
const (
	DefaultPrimarySource   = "Meta"
	DefaultSecondarySource = "Facebook (Paid)"
)

// Reconciler decides between inserting a lead and refreshing the customer
// status of the lead already stored under the same key.
type Reconciler struct {
	PrimarySource   string
	SecondarySource string
}

// ReconcileResult is what Reconcile did.
type ReconcileResult struct {
	Action Action
	LeadID int64
}

// Reconcile stores cand for the resolved customer. A lead with the same
// (lead date, phone) key is never inserted twice: only its customer_status
// column is overwritten and every other column is left as first stored.
func (r *Reconciler) Reconcile(ctx context.Context, sess Session, cand LeadCandidate, customerID int64, status string) (ReconcileResult, error) {
	existing, err := sess.FindLeadByKey(ctx, cand.Key())
	if err == nil {
		return r.refresh(ctx, sess, existing.ID, status)
	}
	if !errors.Is(err, ErrNotFound) {
		return ReconcileResult{}, storeErr("find lead", err)
	}

	created, err := sess.InsertLead(ctx, r.BuildLead(cand, customerID, status))
	if errors.Is(err, ErrDuplicateLead) {
		// Another cycle inserted the key between our lookup and insert.
		existing, err = sess.FindLeadByKey(ctx, cand.Key())
		if err != nil {
			return ReconcileResult{}, storeErr("find lead", err)
		}
		return r.refresh(ctx, sess, existing.ID, status)
	}
	if err != nil {
		return ReconcileResult{}, storeErr("insert lead", err)
	}
	return ReconcileResult{Action: ActionInserted, LeadID: created.ID}, nil
}

func (r *Reconciler) refresh(ctx context.Context, sess Session, leadID int64, status string) (ReconcileResult, error) {
	if err := sess.UpdateLeadCustomerStatus(ctx, leadID, status); err != nil {
		return ReconcileResult{}, storeErr("update lead status", err)
	}
	return ReconcileResult{Action: ActionStatusUpdated, LeadID: leadID}, nil
}

// BuildLead maps a candidate onto the addleads columns.
func (r *Reconciler) BuildLead(cand LeadCandidate, customerID int64, status string) Lead {
	primary, secondary := r.PrimarySource, r.SecondarySource
	if primary == "" {
		primary = DefaultPrimarySource
	}
	if secondary == "" {
		secondary = DefaultSecondarySource
	}

	return Lead{
		LeadDate:        cand.CreatedTime,
		AdCopy:          cand.AdName,
		AdSet:           cand.AdsetName,
		LeadType:        cand.CampaignName,
		Sources:         cand.Platform,
		StartDate:       cand.PreferredStartDate,
		PeopleCount:     cand.PeopleCount,
		Name:            strings.ToLower(cand.FullName),
		Email:           strings.ToLower(cand.Email),
		Phone:           cand.Phone,
		OriginCity:      cand.City,
		Channel:         cand.Platform,
		Destination:     cand.FormName,
		PrimarySource:   primary,
		SecondarySource: secondary,
		CustomerID:      customerID,
		CustomerStatus:  status,
	}
}
