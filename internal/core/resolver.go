package core

import (
	"context"
	"errors"
	"strings"
)

// Resolver finds or creates the customer owning a phone identity.
type Resolver struct{}

// Resolve returns the id and status of the customer identified by phone.
//
// An existing customer keeps its stored status ("existing" if the column is
// empty). An unseen identity is inserted with status "new".
func (r *Resolver) Resolve(ctx context.Context, sess Session, phone PhoneIdentity, name, email string) (int64, string, error) {
	found, err := sess.FindCustomerByPhone(ctx, phone)
	if err == nil {
		return found.ID, statusOrExisting(found.Status), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, "", storeErr("find customer", err)
	}

	created, err := sess.InsertCustomer(ctx, Customer{
		Name:   strings.TrimSpace(name),
		Email:  strings.TrimSpace(email),
		Phone:  phone,
		Status: StatusNew,
	})
	if err != nil {
		return 0, "", storeErr("insert customer", err)
	}
	return created.ID, statusOrExisting(created.Status), nil
}

func statusOrExisting(status string) string {
	if strings.TrimSpace(status) == "" {
		return StatusExisting
	}
	return status
}
