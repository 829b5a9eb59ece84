package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/pageza/pantrychef/backend/internal/models"
)

type mockPutter struct {
	mock.Mock
	body []byte
}

func (m *mockPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if params.Body != nil {
		m.body, _ = io.ReadAll(params.Body)
	}
	args := m.Called(aws.ToString(params.Bucket), aws.ToString(params.Key))
	if out := args.Get(0); out != nil {
		return out.(*s3.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func testConsulta() *models.Consulta {
	user := uuid.New()
	return &models.Consulta{
		ID:             uuid.New(),
		UserID:         user,
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Provenance:     models.ProvenanceFallback,
		Attempts:       2,
		StockEmbedding: pgvector.NewVector([]float32{1, 0}),
		Recipes: []models.ConsultaRecipe{
			{ID: uuid.New(), UserID: user, Name: "Simple rice", Ingredients: models.Lines{{Name: "rice", Quantity: 250, Unit: "g"}}},
		},
	}
}

func TestS3Archiver_Archive(t *testing.T) {
	putter := &mockPutter{}
	c := testConsulta()
	key := "consultas/" + c.UserID.String() + "/" + c.ID.String() + ".json"
	putter.On("PutObject", "archive-bucket", key).Return(&s3.PutObjectOutput{}, nil)

	err := NewS3ArchiverWithClient(putter, "archive-bucket").Archive(context.Background(), c)
	require.NoError(t, err)
	putter.AssertExpectations(t)

	doc := gjson.ParseBytes(putter.body)
	assert.Equal(t, c.ID.String(), doc.Get("id").String())
	assert.Equal(t, "fallback", doc.Get("provenance").String())
	assert.Equal(t, "2024-05-01T12:00:00.000Z", doc.Get("created_at").String())
	assert.Equal(t, "rice", doc.Get("recipes.0.ingredients.0.name").String())
	assert.Equal(t, float64(250), doc.Get("recipes.0.ingredients.0.quantity").Float())
}

func TestS3Archiver_ArchiveError(t *testing.T) {
	putter := &mockPutter{}
	putter.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	err := NewS3ArchiverWithClient(putter, "archive-bucket").Archive(context.Background(), testConsulta())
	assert.ErrorContains(t, err, "access denied")
}
