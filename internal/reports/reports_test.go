package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/nova/internal/params"
	"github.com/ca-srg/nova/internal/planner"
)

func samplePlan() Plan {
	alloc := planner.Allocate(map[string][]planner.Candidate{
		planner.TierGold:   {{Name: "Ada", AverageSpend: 400}},
		planner.TierBronze: {{Name: "Bo", AverageSpend: 100}},
	}, 1000, planner.DefaultOptions("UK"))

	return Plan{
		Market:     "UK",
		Month:      "December",
		Year:       2025,
		Currency:   params.DefaultMarkets().Currency("UK"),
		Target:     5000,
		Spent:      4000,
		Remaining:  1000,
		Allocation: alloc,
		Booked:     []Booked{{Name: "Cy", Amount: 4000}},
	}
}

func TestRenderPlan(t *testing.T) {
	data, err := RenderPlan(samplePlan())
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"Target Budget", "£5,000.00"}, rows[2])
	assert.Equal(t, []string{"Recommended Allocation", "£500.00"}, rows[5])
	assert.Contains(t, rows, []string{"Gold", "Ada", "£400.00", "8", "50.00"})
	assert.Contains(t, rows, []string{"Bronze", "Bo", "£100.00", "2", "50.00"})
	assert.Contains(t, rows, []string{"Cy", "£4,000.00"})
}

func TestPlan_FileName(t *testing.T) {
	p := samplePlan()
	p.Market = "New Zealand"
	assert.Equal(t, "Strategic_Plan_New_Zealand_December_2025.csv", p.FileName())
}

func setupFakeS3(t *testing.T) *s3.Client {
	t.Helper()

	faker := gofakes3.New(s3mem.New())
	server := httptest.NewServer(faker.Server())
	t.Cleanup(server.Close)

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(server.URL)
		o.UsePathStyle = true
	})
	_, err = client.CreateBucket(context.Background(), &s3.CreateBucketInput{Bucket: aws.String("reports")})
	require.NoError(t, err)
	return client
}

func TestS3Archiver_Archive(t *testing.T) {
	client := setupFakeS3(t)
	archiver, err := NewS3Archiver(client, "reports", "plans/")
	require.NoError(t, err)

	uri, err := archiver.Archive(context.Background(), "UK/2025/plan.csv", []byte("a,b\n"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/plans/UK/2025/plan.csv", uri)

	out, err := client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String("reports"),
		Key:    aws.String("plans/UK/2025/plan.csv"),
	})
	require.NoError(t, err)
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(body))
}

func TestS3Archiver_MissingBucket(t *testing.T) {
	client := setupFakeS3(t)
	archiver, err := NewS3Archiver(client, "absent", "")
	require.NoError(t, err)

	_, err = archiver.Archive(context.Background(), "x.csv", []byte("x"), "text/csv")
	assert.Error(t, err)

	_, err = NewS3Archiver(client, " ", "")
	assert.Error(t, err)
}
