package controllers

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/Govind-619/WalletDesk/middleware"
	"github.com/Govind-619/WalletDesk/models"
	"github.com/Govind-619/WalletDesk/money"
	"github.com/Govind-619/WalletDesk/services"
	"github.com/Govind-619/WalletDesk/storage"
	"github.com/Govind-619/WalletDesk/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// expiringProofStore stores the file and then expires the request, as a sweep
// running between the upload and the attach would.
type expiringProofStore struct {
	*storage.LocalProofStore
	db        *gorm.DB
	requestID uint
	deleted   []string
}

func (s *expiringProofStore) Save(ctx context.Context, file *multipart.FileHeader) (string, error) {
	ref, err := s.LocalProofStore.Save(ctx, file)
	if err != nil {
		return "", err
	}
	err = s.db.Model(&models.TopupRequest{}).Where("id = ?", s.requestID).
		Update("status", models.TopupStatusExpired).Error
	return ref, err
}

func (s *expiringProofStore) Delete(ctx context.Context, ref string) error {
	s.deleted = append(s.deleted, ref)
	return s.LocalProofStore.Delete(ctx, ref)
}

func TestUploadTopupProofRemovesFileWhenAttachFails(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "user@example.com", models.RoleUser)

	wallets := services.NewWalletStore(db)
	outbox := services.NewOutbox(db, nil)
	topups := services.NewTopupService(db, wallets, outbox, services.TopupConfig{
		MinAmount: money.New(10000),
		Expiry:    time.Hour,
	}, nil)
	req, err := topups.Create(context.Background(), services.CreateTopupInput{
		UserID: user.ID,
		Amount: money.New(25000),
		Method: models.PaymentMethodBankBCA,
	})
	require.NoError(t, err)

	dir := t.TempDir()
	proofs := &expiringProofStore{
		LocalProofStore: storage.NewLocalProofStore(dir, "/uploads/proofs"),
		db:              db,
		requestID:       req.ID,
	}
	h := &Handler{Topups: topups, Wallets: wallets, Proofs: proofs}

	router := gin.New()
	router.POST("/topups/:id/proof", func(c *gin.Context) {
		c.Set(middleware.ActorKey, services.Actor{ID: user.ID, Role: models.RoleUser})
		c.Next()
	}, h.UploadTopupProof)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("proof", "receipt.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	res := testutil.MakeTestRequest(t, router, testutil.TestRequest{
		Method:  http.MethodPost,
		Path:    fmt.Sprintf("/topups/%d/proof", req.ID),
		Headers: map[string]string{"Content-Type": mw.FormDataContentType()},
		RawBody: body.Bytes(),
	})
	assert.Equal(t, http.StatusConflict, res.StatusCode, string(res.Raw))

	require.Len(t, proofs.deleted, 1)
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)

	got, err := topups.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopupStatusExpired, got.Status)
	assert.Empty(t, got.ProofImageURL)
}
