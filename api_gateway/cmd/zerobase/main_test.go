package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndrohith09/Zerobase/api_gateway/internal/schema"
)

func TestNewAppServesFamily(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("GRAPHQL_PLAYGROUND_ENABLED", "true")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp), sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	family, err := schema.Builtin("aviary")
	require.NoError(t, err)

	app, err := newApp(logger, family, db)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO Birds (name, family) VALUES ($1, $2) RETURNING id, name, family`)).
		WithArgs("Falcon", "Accipitridae").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "family"}).AddRow(int64(1), "Falcon", "Accipitridae"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/graphql",
		strings.NewReader(`{"query":"mutation { createBirds(name: \"Falcon\", family: \"Accipitridae\") { id } }"}`))
	req.Header.Set("Content-Type", "application/json")
	app.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"createBirds":{"id":"1"}}}`, w.Body.String())

	mock.ExpectPing()
	w = httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `zerobase_db_queries_total{entity="Birds",operation="create",status="success"} 1`)
	assert.Contains(t, w.Body.String(), `zerobase_graphql_operations_total{field="createBirds",status="success"} 1`)

	w = httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql/playground", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}
