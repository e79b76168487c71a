//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	server "uni_directory/internal/adapters/http_server"
	"uni_directory/internal/adapters/recordapi"
	redisad "uni_directory/internal/adapters/redis"
	"uni_directory/internal/app"
	"uni_directory/internal/domain"
	"uni_directory/internal/storage/memory"
	mysqlrepo "uni_directory/internal/storage/mysql"
)

// ---------- helpers ----------
func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Skipf("%s not set; export it (e.g. MIGRATIONS_DIR=$PWD/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := filepath.Join(mustEnv(t, "MIGRATIONS_DIR"), "mysql")

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil || len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	mustEnv(t, "MIGRATIONS_DIR")

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=unidir"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/unidir?parseTime=true&multiStatements=true&charset=utf8mb4&loc=UTC",
		resource.GetPort("3306/tcp"))
	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// remoteAPI serves the seeded fixtures the way the upstream record API lists them.
func remoteAPI(t *testing.T) *httptest.Server {
	t.Helper()
	src, err := memory.NewSeeded()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{collection}", func(w http.ResponseWriter, r *http.Request) {
		recs, err := src.GetAll(r.Context(), r.PathValue("collection"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"list": recs})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// ---------- the test ----------
func TestHTTP_EndToEnd_MirrorThenBrowse(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	// 1) mirror the remote API into MySQL
	remote, err := recordapi.New(remoteAPI(t).URL, "", 50)
	if err != nil {
		t.Fatalf("recordapi.New: %v", err)
	}
	st, err := app.NewMirrorService(remote, repo, cache, 4).MirrorAll(ctx)
	if err != nil {
		t.Fatalf("MirrorAll: %v", err)
	}
	if st.Copied != 8+12+6 || st.Failed != 0 {
		t.Fatalf("mirror stats: %+v", st)
	}

	// 2) serve the mirrored data
	q := app.NewQueryService(repo, cache, time.Minute)
	srv := server.New()
	srv.MountHandlers(&server.Handlers{
		Q:   q,
		C:   app.NewCommandService(repo, cache),
		Cmp: app.NewCompareService(cache, q, time.Hour),
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/universities/1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	var d domain.UniversityDetail
	if err := json.NewDecoder(res.Body).Decode(&d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.University.Name != "Cairo University" || len(d.Faculties) != 3 {
		t.Fatalf("unexpected detail: %+v", d)
	}

	// 3) a submitted review lands in MySQL with the next id
	body := []byte(`{"targetId":3,"targetType":"university","rating":8,"content":"Beautiful campus by the sea"}`)
	pres, err := http.Post(ts.URL+"/v1/reviews", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer pres.Body.Close()
	if pres.StatusCode != http.StatusCreated {
		t.Fatalf("status %d", pres.StatusCode)
	}
	var rv domain.Review
	if err := json.NewDecoder(pres.Body).Decode(&rv); err != nil {
		t.Fatalf("decode review: %v", err)
	}
	if rv.ID != 7 {
		t.Fatalf("review id=%d want 7", rv.ID)
	}
	got, err := repo.GetByParent(ctx, domain.CollectionReviews, "targetId", 3)
	if err != nil {
		t.Fatalf("GetByParent: %v", err)
	}
	found := false
	for _, r := range got {
		if r.ID() == rv.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("review %d not stored in mysql", rv.ID)
	}
}
