package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/diagnosis/bloodcare/internal/domain"
)

func TestSetStatus_RejectsInProgressWithoutDonor(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	requests := NewStore().DonationRequests()

	id, err := requests.Insert(ctx, domain.NewDonationRequest("a@x.com", domain.CreateRequestCommand{DonorName: "B", DonorEmail: "b@x.com"}, now))
	require.NoError(t, err)

	_, err = requests.SetStatus(ctx, id, domain.StatusInProgress, true, now.Add(time.Minute))
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	r, err := requests.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, r.DonationStatus)
	require.Equal(t, "b@x.com", *r.DonorEmail, "rejected write leaves the stored request alone")
	require.Equal(t, now, r.UpdatedAt)
}

func TestSetStatus_RevertToPendingClearsDonor(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	requests := NewStore().DonationRequests()

	id, _ := requests.Insert(ctx, domain.NewDonationRequest("a@x.com", domain.CreateRequestCommand{DonorName: "B", DonorEmail: "b@x.com"}, now))

	res, err := requests.SetStatus(ctx, id, domain.StatusPending, true, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.ModifiedCount)

	r, _ := requests.FindByID(ctx, id)
	require.Nil(t, r.DonorEmail)
	require.NoError(t, r.Validate())
}
