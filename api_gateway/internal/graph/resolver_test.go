package graph

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndrohith09/Zerobase/api_gateway/internal/schema"
	"github.com/ndrohith09/Zerobase/api_gateway/internal/store"
)

// memStore keeps rows per table and mimics the statement semantics of store.Store.
type memStore struct {
	mu     sync.Mutex
	nextID map[string]int64
	rows   map[string]map[int64]map[string]any
}

func newMemStore() *memStore {
	return &memStore{nextID: map[string]int64{}, rows: map[string]map[int64]map[string]any{}}
}

func (m *memStore) record(id int64, values map[string]any) *store.Record {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &store.Record{ID: id, Values: cp}
}

func (m *memStore) List(_ context.Context, e *schema.Entity) ([]store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.rows[e.Table]))
	for id := range m.rows[e.Table] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []store.Record{}
	for _, id := range ids {
		out = append(out, *m.record(id, m.rows[e.Table][id]))
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, e *schema.Entity, id int64) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[e.Table][id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", e.Name, id, store.ErrNotFound)
	}
	return m.record(id, row), nil
}

func (m *memStore) Create(_ context.Context, e *schema.Entity, input map[string]any) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range e.Fields {
		if _, ok := input[f.Name]; !ok && f.IsRequired() {
			return nil, &store.ValidationError{Entity: e.Name, Field: f.Name, Reason: "value is required"}
		}
	}
	m.nextID[e.Table]++
	id := m.nextID[e.Table]
	row := map[string]any{}
	for _, f := range e.Fields {
		row[f.Name] = input[f.Name]
	}
	if m.rows[e.Table] == nil {
		m.rows[e.Table] = map[int64]map[string]any{}
	}
	m.rows[e.Table][id] = row
	return m.record(id, row), nil
}

func (m *memStore) Update(_ context.Context, e *schema.Entity, id int64, input map[string]any) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(input) == 0 {
		return nil, &store.ValidationError{Entity: e.Name, Reason: "update requires at least one field"}
	}
	for k, v := range input {
		if f, _ := e.Field(k); v == nil && f.IsRequired() {
			return nil, &store.ValidationError{Entity: e.Name, Field: k, Reason: "value is required"}
		}
	}
	row, ok := m.rows[e.Table][id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", e.Name, id, store.ErrNotFound)
	}
	for k, v := range input {
		row[k] = v
	}
	return m.record(id, row), nil
}

func (m *memStore) Delete(_ context.Context, e *schema.Entity, id int64) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[e.Table][id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", e.Name, id, store.ErrNotFound)
	}
	delete(m.rows[e.Table], id)
	return m.record(id, row), nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func buildSchema(t *testing.T, family string, st EntityStore, metrics *GraphQLMetrics) graphql.Schema {
	t.Helper()
	fam, err := schema.Builtin(family)
	require.NoError(t, err)
	s, err := NewSchema(fam, NewResolver(st, quietLogger(), metrics))
	require.NoError(t, err)
	return s
}

func run(s graphql.Schema, query string) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:        s,
		RequestString: query,
		Context:       context.Background(),
	})
}

func data(t *testing.T, res *graphql.Result, field string) map[string]interface{} {
	t.Helper()
	root, ok := res.Data.(map[string]interface{})
	require.True(t, ok, "expected data object, got %#v", res.Data)
	if root[field] == nil {
		return nil
	}
	obj, ok := root[field].(map[string]interface{})
	require.True(t, ok, "expected %s to be an object, got %#v", field, root[field])
	return obj
}

func TestBirdsScenario(t *testing.T) {
	s := buildSchema(t, "aviary", newMemStore(), nil)

	res := run(s, `mutation { createBirds(name: "Falcon", family: "Accipitridae") { id name family } }`)
	require.Empty(t, res.Errors)
	created := data(t, res, "createBirds")
	assert.Equal(t, map[string]interface{}{"id": "1", "name": "Falcon", "family": "Accipitridae"}, created)

	res = run(s, `{ getBirds(id: "1") { id name family } }`)
	require.Empty(t, res.Errors)
	assert.Equal(t, created, data(t, res, "getBirds"))

	res = run(s, `mutation { deleteBirds(id: "1") { id name family } }`)
	require.Empty(t, res.Errors)
	assert.Equal(t, created, data(t, res, "deleteBirds"))

	res = run(s, `{ getBirds(id: "1") { id name family } }`)
	require.Len(t, res.Errors, 1)
	assert.Nil(t, data(t, res, "getBirds"))
	assert.Equal(t, "NOT_FOUND", res.Errors[0].Extensions["code"])
}

func TestFailingFieldLeavesSiblingsIntact(t *testing.T) {
	s := buildSchema(t, "aviary", newMemStore(), nil)
	require.Empty(t, run(s, `mutation { createBirds(name: "Owl", family: "Strigidae") { id } }`).Errors)

	res := run(s, `{ missing: getBirds(id: "42") { id } everything: allBirds { id name } }`)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, []interface{}{"missing"}, res.Errors[0].Path)

	root := res.Data.(map[string]interface{})
	assert.Nil(t, root["missing"])
	list, ok := root["everything"].([]interface{})
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestUpdateMissingRecordIsNotFound(t *testing.T) {
	s := buildSchema(t, "aviary", newMemStore(), nil)

	res := run(s, `mutation { updateBirds(id: "7", name: "Kestrel") { id } }`)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "NOT_FOUND", res.Errors[0].Extensions["code"])
	assert.Nil(t, data(t, res, "updateBirds"))
}

func TestUpdatePreservesOmittedFields(t *testing.T) {
	s := buildSchema(t, "shelter", newMemStore(), nil)
	require.Empty(t, run(s, `mutation { createAnimals(name: "Rex", breed: "Collie") { id } }`).Errors)

	res := run(s, `mutation { updateAnimals(id: "1", breed: "Border Collie") { id name breed } }`)
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]interface{}{"id": "1", "name": "Rex", "breed": "Border Collie"}, data(t, res, "updateAnimals"))
}

func TestUpdateClearsOptionalFieldWithNullVariable(t *testing.T) {
	s := buildSchema(t, "library", newMemStore(), nil)
	require.Empty(t, run(s, `mutation { createBooks(title: "Dune", instructor: "Herbert", publishDate: "1965") { id } }`).Errors)

	update := `mutation ($pd: String, $title: String) {
		updateBooks(id: "1", publishDate: $pd, title: $title) { title instructor publishDate }
	}`
	vars := map[string]interface{}{"pd": nil}
	res := graphql.Do(graphql.Params{
		Schema:         s,
		RequestString:  update,
		VariableValues: vars,
		Context:        WithVariables(context.Background(), vars),
	})
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]interface{}{
		"title": "Dune", "instructor": "Herbert", "publishDate": nil,
	}, data(t, res, "updateBooks"))
}

func TestUpdateRejectsNullForRequiredField(t *testing.T) {
	s := buildSchema(t, "library", newMemStore(), nil)
	require.Empty(t, run(s, `mutation { createBooks(title: "Dune", instructor: "Herbert") { id } }`).Errors)

	vars := map[string]interface{}{"title": nil}
	res := graphql.Do(graphql.Params{
		Schema:         s,
		RequestString:  `mutation ($title: String) { updateBooks(id: "1", title: $title) { title } }`,
		VariableValues: vars,
		Context:        WithVariables(context.Background(), vars),
	})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "VALIDATION_ERROR", res.Errors[0].Extensions["code"])
}

func TestInvalidIDIsValidationError(t *testing.T) {
	s := buildSchema(t, "aviary", newMemStore(), nil)

	res := run(s, `{ getBirds(id: "falcon") { id } }`)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "VALIDATION_ERROR", res.Errors[0].Extensions["code"])
	assert.Equal(t, "id", res.Errors[0].Extensions["field"])
}

func TestCreateRequiresDeclaredFields(t *testing.T) {
	st := newMemStore()
	s := buildSchema(t, "aviary", st, nil)

	res := run(s, `mutation { createBirds(name: "Falcon") { id } }`)
	require.NotEmpty(t, res.Errors)

	list := run(s, `{ allBirds { id } }`)
	require.Empty(t, list.Errors)
	assert.Empty(t, list.Data.(map[string]interface{})["allBirds"])
}

func TestListReflectsCreatesAndDeletes(t *testing.T) {
	s := buildSchema(t, "sample", newMemStore(), nil)

	for i := 0; i < 5; i++ {
		res := run(s, fmt.Sprintf(`mutation { createSample(word: "w%d") { id } }`, i))
		require.Empty(t, res.Errors)
	}
	require.Empty(t, run(s, `mutation { deleteSample(id: "2") { id } }`).Errors)
	require.Empty(t, run(s, `mutation { deleteSample(id: "4") { id } }`).Errors)
	require.Empty(t, run(s, `mutation { updateSample(id: "5", word: "last") { id } }`).Errors)

	res := run(s, `{ allSample { id word } }`)
	require.Empty(t, res.Errors)
	assert.Equal(t, []interface{}{
		map[string]interface{}{"id": "1", "word": "w0"},
		map[string]interface{}{"id": "3", "word": "w2"},
		map[string]interface{}{"id": "5", "word": "last"},
	}, res.Data.(map[string]interface{})["allSample"])
}

func TestEmployeeScalars(t *testing.T) {
	s := buildSchema(t, "hr", newMemStore(), nil)

	res := run(s, `mutation {
		createEmployee(eId: 10, name: "Ada", age: 36, phone: 5550100, email: "ada@example.com", salary: 72000.50) {
			id eId name age salary
		}
	}`)
	require.Empty(t, res.Errors)
	emp := data(t, res, "createEmployee")
	assert.Equal(t, 10, emp["eId"])
	assert.Equal(t, "72000.50", emp["salary"])

	res = run(s, `mutation { updateEmployee(id: "1", salary: "80000") { salary } }`)
	require.Empty(t, res.Errors)
	assert.Equal(t, "80000", data(t, res, "updateEmployee")["salary"])
}

func TestResolverMetrics(t *testing.T) {
	metrics := &GraphQLMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_graphql_operations_total"}, []string{"field", "status"}),
		Duration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_graphql_duration_seconds"}, []string{"field"}),
	}
	s := buildSchema(t, "aviary", newMemStore(), metrics)

	run(s, `{ allBirds { id } }`)
	run(s, `{ getBirds(id: "9") { id } }`)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Operations.WithLabelValues("allBirds", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Operations.WithLabelValues("getBirds", "error")))
}

func TestSchemaAgainstPostgresStore(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	s := buildSchema(t, "aviary", store.NewStore(db, 0, nil), nil)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO Birds (name, family) VALUES ($1, $2) RETURNING id, name, family`)).
		WithArgs("Falcon", "Accipitridae").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "family"}).AddRow(int64(1), "Falcon", "Accipitridae"))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE Birds SET family = $1 WHERE id = $2 RETURNING id, name, family`)).
		WithArgs("Falconidae", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "family"}).AddRow(int64(1), "Falcon", "Falconidae"))

	res := run(s, `mutation {
		created: createBirds(name: "Falcon", family: "Accipitridae") { id }
		updated: updateBirds(id: "1", family: "Falconidae") { id name family }
	}`)
	require.Empty(t, res.Errors)
	assert.Equal(t, "1", data(t, res, "created")["id"])
	assert.Equal(t, "Falconidae", data(t, res, "updated")["family"])
	require.NoError(t, mock.ExpectationsWereMet())
}
