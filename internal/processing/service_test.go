package processing

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	pgContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/RMahshie/emav/internal/config"
	"github.com/RMahshie/emav/internal/metrics"
	"github.com/RMahshie/emav/internal/repository/postgres"
	"github.com/RMahshie/emav/internal/storage"
	"github.com/RMahshie/emav/internal/testutil"
	"github.com/RMahshie/emav/internal/validation"
	"github.com/RMahshie/emav/pkg/models"
)

// MockRepository mocks repository.ValidationRepository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, v *models.Validation) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Validation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Validation), args.Error(1)
}

func (m *MockRepository) GetBySessionID(ctx context.Context, sessionID string) ([]*models.Validation, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]*models.Validation), args.Error(1)
}

func (m *MockRepository) ClaimForProcessing(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) ClearUploadKeys(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	return m.Called(ctx, id, status, progress).Error(0)
}

func (m *MockRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return m.Called(ctx, id, errorMsg).Error(0)
}

func (m *MockRepository) StoreResults(ctx context.Context, results *models.ValidationResults) error {
	return m.Called(ctx, results).Error(0)
}

func (m *MockRepository) GetResults(ctx context.Context, id uuid.UUID) (*models.ValidationResults, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ValidationResults), args.Error(1)
}

// MockFileStore mocks storage.FileStore
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) EnsureBucket(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockFileStore) GenerateUploadURL(ctx context.Context, key, contentType string) (string, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) UploadFile(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *MockFileStore) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockFileStore) DeleteFile(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func frfFile(t *testing.T, fn float64) []byte {
	t.Helper()
	freq := testutil.Linspace(0, 1000, 1001)
	return []byte(testutil.Simplified{
		XMin:      0,
		XIncOrMax: 1000,
		Values:    testutil.Interleave(testutil.Resonance(freq, fn, 0.02)),
	}.String())
}

func newJob(id uuid.UUID, mode string) *models.Validation {
	refKey := "records/" + id.String() + "/reference.unv"
	recKey := "records/" + id.String() + "/reconstructed.unv"
	return &models.Validation{
		ID:               id.String(),
		SessionID:        "session-123456",
		Mode:             mode,
		Status:           models.StatusPending,
		ReferenceKey:     &refKey,
		ReconstructedKey: &recKey,
	}
}

func TestProcessValidation_Success(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	job := newJob(id, "complex")

	repo := new(MockRepository)
	store := new(MockFileStore)

	for _, p := range []int{10, 20, 35, 50, 65, 80, 90} {
		repo.On("UpdateStatus", ctx, id, models.StatusProcessing, p).Return(nil).Once()
	}
	repo.On("GetByID", ctx, id).Return(job, nil)
	store.On("DownloadFile", ctx, *job.ReferenceKey).Return(frfFile(t, 100), nil)
	store.On("DownloadFile", ctx, *job.ReconstructedKey).Return(frfFile(t, 102), nil)

	var stored *models.ValidationResults
	repo.On("StoreResults", ctx, mock.AnythingOfType("*models.ValidationResults")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.ValidationResults) }).
		Return(nil)
	repo.On("UpdateStatus", ctx, id, models.StatusCompleted, 100).Return(nil)

	svc := NewValidationService(store, repo, WithMetrics(metrics.New()))
	require.NoError(t, svc.ProcessValidation(ctx, id))

	require.NotNil(t, stored)
	assert.Equal(t, job.ID, stored.ValidationID)
	assert.Equal(t, 1.0, stored.OverlapFraction)
	assert.Equal(t, models.TierResilient, stored.ReferenceDiagnostics.Tier)
	require.Equal(t, 1, stored.Report.PeaksMatched)
	assert.InDelta(t, 2.0, stored.Report.Peaks[0].FreqError, 1e-9)
	assert.True(t, stored.Report.FRAC.Available)

	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestProcessValidation_DownloadFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	job := newJob(id, "")

	repo := new(MockRepository)
	store := new(MockFileStore)

	repo.On("UpdateStatus", ctx, id, models.StatusProcessing, 10).Return(nil)
	repo.On("UpdateStatus", ctx, id, models.StatusProcessing, 20).Return(nil)
	repo.On("GetByID", ctx, id).Return(job, nil)
	store.On("DownloadFile", ctx, *job.ReferenceKey).Return(nil, errors.New("no such key"))
	repo.On("UpdateError", ctx, id, mock.MatchedBy(func(msg string) bool {
		return msg == "Failed to download reference file: no such key"
	})).Return(nil)

	svc := NewValidationService(store, repo)
	assert.NoError(t, svc.ProcessValidation(ctx, id))

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "StoreResults", mock.Anything, mock.Anything)
}

func TestProcessValidation_UnparseableFileMarksFailed(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	job := newJob(id, "complex")

	repo := new(MockRepository)
	store := new(MockFileStore)

	for _, p := range []int{10, 20, 35, 50} {
		repo.On("UpdateStatus", ctx, id, models.StatusProcessing, p).Return(nil)
	}
	repo.On("GetByID", ctx, id).Return(job, nil)
	store.On("DownloadFile", ctx, *job.ReferenceKey).Return([]byte("not a universal file\n"), nil)
	store.On("DownloadFile", ctx, *job.ReconstructedKey).Return(frfFile(t, 100), nil)
	repo.On("UpdateError", ctx, id, mock.AnythingOfType("string")).Return(nil)

	svc := NewValidationService(store, repo)
	assert.NoError(t, svc.ProcessValidation(ctx, id))

	repo.AssertExpectations(t)
	msg := repo.Calls[len(repo.Calls)-1].Arguments.String(2)
	assert.Contains(t, msg, "Failed to parse reference file")
}

func TestProcessValidation_MissingKeyMarksFailed(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	job := newJob(id, "complex")
	job.ReconstructedKey = nil

	repo := new(MockRepository)
	repo.On("UpdateStatus", ctx, id, models.StatusProcessing, 10).Return(nil)
	repo.On("GetByID", ctx, id).Return(job, nil)
	repo.On("UpdateError", ctx, id, "Validation is missing an uploaded file").Return(nil)

	svc := NewValidationService(new(MockFileStore), repo)
	assert.NoError(t, svc.ProcessValidation(ctx, id))
	repo.AssertExpectations(t)
}

func TestProcessValidation_RepositoryErrorIsReturned(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	repo := new(MockRepository)
	repo.On("UpdateStatus", ctx, id, models.StatusProcessing, 10).Return(errors.New("connection refused"))

	svc := NewValidationService(new(MockFileStore), repo)
	err := svc.ProcessValidation(ctx, id)
	assert.EqualError(t, err, "connection refused")
}

func TestProcessValidation_AmplitudeModeFromDefault(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	job := newJob(id, "")

	repo := new(MockRepository)
	store := new(MockFileStore)
	repo.On("UpdateStatus", ctx, id, mock.Anything, mock.Anything).Return(nil)
	repo.On("GetByID", ctx, id).Return(job, nil)
	store.On("DownloadFile", ctx, mock.Anything).Return(frfFile(t, 100), nil)

	var stored *models.ValidationResults
	repo.On("StoreResults", ctx, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.ValidationResults) }).
		Return(nil)

	svc := NewValidationService(store, repo, WithDefaultMode(validation.ModeAmplitude))
	require.NoError(t, svc.ProcessValidation(ctx, id))

	// Column 0 of the reconstructed file is read as a zero-phase magnitude,
	// so the shapes no longer agree exactly.
	require.NotNil(t, stored)
	assert.True(t, stored.Report.FRAC.Available)
	assert.Less(t, stored.Report.FRAC.Value, 1.0)
}

func TestProcessValidation_UploadCleanup(t *testing.T) {
	ctx := context.Background()

	setup := func(id uuid.UUID, job *models.Validation) (*MockRepository, *MockFileStore) {
		repo := new(MockRepository)
		store := new(MockFileStore)
		repo.On("UpdateStatus", ctx, id, mock.Anything, mock.Anything).Return(nil)
		repo.On("GetByID", ctx, id).Return(job, nil)
		repo.On("StoreResults", ctx, mock.Anything).Return(nil)
		store.On("DownloadFile", ctx, mock.Anything).Return(frfFile(t, 100), nil)
		return repo, store
	}

	t.Run("deletes both records and forgets the keys", func(t *testing.T) {
		id := uuid.New()
		job := newJob(id, "complex")
		repo, store := setup(id, job)
		store.On("DeleteFile", ctx, *job.ReferenceKey).Return(nil).Once()
		store.On("DeleteFile", ctx, *job.ReconstructedKey).Return(nil).Once()
		repo.On("ClearUploadKeys", ctx, id).Return(nil).Once()

		svc := NewValidationService(store, repo, WithUploadCleanup(true))
		require.NoError(t, svc.ProcessValidation(ctx, id))

		repo.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("failed delete keeps the keys and the result", func(t *testing.T) {
		id := uuid.New()
		job := newJob(id, "complex")
		repo, store := setup(id, job)
		store.On("DeleteFile", ctx, *job.ReferenceKey).Return(errors.New("access denied"))

		svc := NewValidationService(store, repo, WithUploadCleanup(true))
		require.NoError(t, svc.ProcessValidation(ctx, id))

		repo.AssertCalled(t, "UpdateStatus", ctx, id, models.StatusCompleted, 100)
		repo.AssertNotCalled(t, "ClearUploadKeys", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "DeleteFile", ctx, *job.ReconstructedKey)
	})

	t.Run("disabled by default", func(t *testing.T) {
		id := uuid.New()
		repo, store := setup(id, newJob(id, "complex"))

		svc := NewValidationService(store, repo)
		require.NoError(t, svc.ProcessValidation(ctx, id))
		store.AssertNotCalled(t, "DeleteFile", mock.Anything, mock.Anything)
	})
}

// TestFullValidationPipeline_Integration runs a job against real PostgreSQL and MinIO containers
func TestFullValidationPipeline_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	pg, err := pgContainer.Run(ctx,
		"postgres:15-alpine",
		pgContainer.WithDatabase("emav_test"),
		pgContainer.WithUsername("testuser"),
		pgContainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, pg.Terminate(ctx)) }()

	minioContainer, err := minio.Run(ctx,
		"minio/minio:RELEASE.2024-10-29T16-01-48Z",
		minio.WithUsername("minioadmin"),
		minio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, minioContainer.Terminate(ctx)) }()

	dbURL, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	minioURL, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	defer db.Close()

	migration, err := os.ReadFile("../../migrations/000001_create_validations.up.sql")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, string(migration))
	require.NoError(t, err)

	store, err := storage.New(config.StorageConfig{
		Backend:         "minio",
		Bucket:          "emav-test-" + uuid.New().String()[:8],
		Endpoint:        minioURL,
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx))

	repo := postgres.NewPostgresValidationRepository(db)
	job := newJob(uuid.New(), "complex")
	require.NoError(t, repo.Create(ctx, job))
	require.NoError(t, store.UploadFile(ctx, *job.ReferenceKey, frfFile(t, 100), "text/plain"))
	require.NoError(t, store.UploadFile(ctx, *job.ReconstructedKey, frfFile(t, 102), "text/plain"))

	id := uuid.MustParse(job.ID)
	require.NoError(t, repo.ClaimForProcessing(ctx, id))
	svc := NewValidationService(store, repo, WithUploadCleanup(true))
	require.NoError(t, svc.ProcessValidation(ctx, id))

	final, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.NotNil(t, final.CompletedAt)
	assert.Nil(t, final.ReferenceKey)
	assert.Nil(t, final.ReconstructedKey)

	_, err = store.DownloadFile(ctx, *job.ReferenceKey)
	assert.Error(t, err)

	results, err := repo.GetResults(ctx, id)
	require.NoError(t, err)
	require.Len(t, results.Report.Peaks, 1)
	assert.InDelta(t, 100.0, results.Report.Peaks[0].FreqReference, 1e-9)
	assert.InDelta(t, 102.0, results.Report.Peaks[0].FreqReconstructed, 1e-9)
}
