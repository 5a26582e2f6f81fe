package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPSourceFetch(t *testing.T) {
	var gotDate string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDate = r.URL.Query().Get("date")
		_, _ = w.Write([]byte(sampleDailyList))
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, srv.Client())
	table, err := source.Fetch(context.Background(), time.Date(2023, time.January, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "03.01.2023", gotDate)
	require.Equal(t, "2023-01-03", DateKey(table.Date))
	require.Len(t, table.Entries, 4)
}

func TestHTTPSourceFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, srv.Client())
	_, err := source.Fetch(context.Background(), time.Now())
	require.Error(t, err)
}

func TestHTTPSourceFetchBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, srv.Client())
	_, err := source.Fetch(context.Background(), time.Now())
	require.Error(t, err)
}
