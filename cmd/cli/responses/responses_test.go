package responses_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/myrjola/survey/cmd/cli/responses"
	"github.com/myrjola/survey/internal/repositories"
	"github.com/myrjola/survey/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seed stores two responses and returns their references, oldest first.
func seed(t *testing.T, url string) []string {
	t.Helper()
	var refs []string
	err := responses.Run(context.Background(), url, testhelpers.NewLogger(io.Discard),
		func(ctx context.Context, repo *repositories.ResponseRepository) error {
			for _, values := range []map[string]string{
				{"timestamp": "13/10/2026, 09:00:00", "name": "Ada", "email": "ada@example.com", "postcode": "EC1A 1BB"},
				{"timestamp": "14/10/2026, 10:00:00", "name": "Grace", "message": "Loft, \"insulated\""},
			} {
				resp, err := repo.Append(ctx, values)
				if err != nil {
					return err
				}
				refs = append(refs, resp.Reference)
			}
			return nil
		})
	require.NoError(t, err)
	return refs
}

func TestList(t *testing.T) {
	url := filepath.Join(t.TempDir(), "responses.sqlite")
	refs := seed(t, url)

	var out bytes.Buffer
	require.NoError(t, responses.List.Flags().Set("sqlite-url", url))
	require.NoError(t, responses.List.Flags().Set("limit", "1"))
	responses.List.SetOut(&out)
	require.NoError(t, responses.List.RunE(responses.List, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "REFERENCE"))
	assert.True(t, strings.HasPrefix(lines[1], refs[1]), "newest first")
	assert.Contains(t, lines[1], "Grace")
}

func TestGet(t *testing.T) {
	url := filepath.Join(t.TempDir(), "responses.sqlite")
	refs := seed(t, url)
	require.NoError(t, responses.Get.Flags().Set("sqlite-url", url))

	var out bytes.Buffer
	responses.Get.SetOut(&out)
	require.NoError(t, responses.Get.RunE(responses.Get, []string{refs[0]}))
	assert.Contains(t, out.String(), "ada@example.com")
	assert.Contains(t, out.String(), "EC1A 1BB")

	err := responses.Get.RunE(responses.Get, []string{"ZZZZZZ"})
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestWriteCSV(t *testing.T) {
	url := filepath.Join(t.TempDir(), "responses.sqlite")
	refs := seed(t, url)

	var out bytes.Buffer
	err := responses.Run(context.Background(), url, testhelpers.NewLogger(io.Discard),
		func(ctx context.Context, repo *repositories.ResponseRepository) error {
			list, err := repo.List(ctx, 0)
			if err != nil {
				return err
			}
			return responses.WriteCSV(&out, list, repo.Columns())
		})
	require.NoError(t, err)

	rows, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	header := rows[0]
	assert.Equal(t, []string{"reference", "received_at", "timestamp", "fuelType"}, header[:4])
	assert.Equal(t, "message", header[len(header)-1])
	assert.Equal(t, refs[0], rows[1][0], "oldest first")
	assert.Equal(t, refs[1], rows[2][0])
	assert.Equal(t, `Loft, "insulated"`, rows[2][len(header)-1])
	assert.Equal(t, "", rows[2][3], "missing answers are empty")
}
