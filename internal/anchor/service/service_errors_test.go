package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"vcanchor/internal/anchor/chain"
	"vcanchor/internal/anchor/models"
	"vcanchor/internal/anchor/service"
	"vcanchor/internal/anchor/service/mocks"
	credmodels "vcanchor/internal/credential/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/sentinel"
	"vcanchor/pkg/platform/tx"
	"vcanchor/pkg/testutil"
)

func newMockedService(t *testing.T, chainClient chain.Client) (*service.Service, *mocks.MockCredentialStore, *mocks.MockBatchStore) {
	ctrl := gomock.NewController(t)
	creds := mocks.NewMockCredentialStore(ctrl)
	batches := mocks.NewMockBatchStore(ctrl)
	svc := service.New(creds, batches, chainClient, tx.NewMemoryRunner(),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		service.WithIDGenerator(func(prefix string) string { return prefix + "fixed" }),
	)
	return svc, creds, batches
}

func TestEnqueue_StoreErrorsAreTranslated(t *testing.T) {
	t.Run("find failure is internal", func(t *testing.T) {
		svc, creds, _ := newMockedService(t, chain.NewMemoryClient("1337"))
		creds.EXPECT().FindByID(gomock.Any(), "vc_1").Return(nil, assert.AnError)

		_, err := svc.Enqueue(context.Background(), "vc_1", credmodels.QueueModeNow)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("persistent version conflict surfaces as conflict", func(t *testing.T) {
		svc, creds, _ := newMockedService(t, chain.NewMemoryClient("1337"))
		creds.EXPECT().FindByID(gomock.Any(), "vc_1").
			DoAndReturn(func(context.Context, string) (*credmodels.Credential, error) {
				return testutil.NewCredential("vc_1"), nil
			}).Times(3)
		creds.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict).Times(3)

		_, err := svc.Enqueue(context.Background(), "vc_1", credmodels.QueueModeNow)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("conflict then success retries", func(t *testing.T) {
		svc, creds, _ := newMockedService(t, chain.NewMemoryClient("1337"))
		creds.EXPECT().FindByID(gomock.Any(), "vc_1").
			DoAndReturn(func(context.Context, string) (*credmodels.Credential, error) {
				return testutil.NewCredential("vc_1"), nil
			}).Times(2)
		gomock.InOrder(
			creds.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict),
			creds.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil),
		)

		c, err := svc.Enqueue(context.Background(), "vc_1", credmodels.QueueModeNow)
		require.NoError(t, err)
		assert.Equal(t, credmodels.StatusQueued, c.Anchoring.Status())
	})
}

func TestApprove_InfrastructureFailureAborts(t *testing.T) {
	svc, creds, _ := newMockedService(t, chain.NewMemoryClient("1337"))
	creds.EXPECT().FindByID(gomock.Any(), "vc_1").Return(nil, assert.AnError)

	_, err := svc.Approve(context.Background(), []string{"vc_1"}, credmodels.ApprovedModeBatch)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestMint_ChainFailureReleasesLease(t *testing.T) {
	memChain := chain.NewMemoryClient("1337")
	memChain.FailNext(1, nil)
	svc, creds, _ := newMockedService(t, memChain)

	leased := testutil.WithAnchoring(testutil.NewCredential("vc_1"), credmodels.StatusMinting,
		credmodels.QueueModeBatch, credmodels.ApprovedModeBatch)
	creds.EXPECT().ClaimForMint(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sel credmodels.MintSelection) ([]*credmodels.Credential, error) {
			assert.Equal(t, "mint_fixed", sel.AttemptID)
			assert.Equal(t, credmodels.ApprovedModeBatch, sel.ApprovedMode)
			assert.Equal(t, credmodels.QueueModeNow, sel.QueueMode)
			return []*credmodels.Credential{leased}, nil
		})
	creds.EXPECT().ReleaseMint(gomock.Any(), "mint_fixed").Return(1, nil)

	_, err := svc.MintBatch(context.Background(), models.MintModeNow)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeChainSubmissionFailed))
}

func TestMint_LeaseLostBeforeCommit(t *testing.T) {
	svc, creds, batches := newMockedService(t, chain.NewMemoryClient("1337"))
	leased := []*credmodels.Credential{
		testutil.WithAnchoring(testutil.NewCredential("vc_1"), credmodels.StatusMinting, credmodels.QueueModeBatch, credmodels.ApprovedModeBatch),
		testutil.WithAnchoring(testutil.NewCredential("vc_2"), credmodels.StatusMinting, credmodels.QueueModeBatch, credmodels.ApprovedModeBatch),
	}
	creds.EXPECT().ClaimForMint(gomock.Any(), gomock.Any()).Return(leased, nil)
	batches.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	creds.EXPECT().MarkAnchored(gomock.Any(), "mint_fixed", "batch_fixed").Return(1, nil)
	creds.EXPECT().ReleaseMint(gomock.Any(), "mint_fixed").Return(1, nil)

	_, err := svc.MintBatch(context.Background(), models.MintModeAll)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestMint_LeaseFailureIsInternal(t *testing.T) {
	svc, creds, _ := newMockedService(t, chain.NewMemoryClient("1337"))
	creds.EXPECT().ClaimForMint(gomock.Any(), gomock.Any()).Return(nil, assert.AnError)

	_, err := svc.MintSelected(context.Background(), []string{"vc_1"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
