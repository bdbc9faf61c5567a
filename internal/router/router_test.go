package router

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inklog/internal/db"
	"github.com/inklog/internal/handler"
	"github.com/inklog/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := gdb.AutoMigrate(&db.User{}, &db.Article{}, &db.ArticleRevision{},
		&db.Comment{}, &db.CommentRevision{}, &db.VisitEntry{}, &db.NewsletterSubscriber{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	api := handler.NewAPI(gdb, nil, service.NewAnalyticsService(gdb, nil), t.TempDir(), "/static/uploads")
	return SetupRouter(api, "test-secret", t.TempDir(), "/static/uploads"), gdb
}

func TestPingRoute(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != `{"message":"pong"}` {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestAdminRoutesAreProtected(t *testing.T) {
	r, _ := setupTestRouter(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/admin/api/articles"},
		{http.MethodPost, "/admin/api/articles"},
		{http.MethodPut, "/admin/api/articles/1"},
		{http.MethodPost, "/admin/api/upload"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		if w.Code != http.StatusForbidden {
			t.Fatalf("%s %s must be protected, got %d", route.method, route.path, w.Code)
		}
	}
}

func TestEveryRequestIsRecorded(t *testing.T) {
	r, gdb := setupTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("User-Agent", "router-test-agent")
	r.ServeHTTP(w, req)

	// 采集在独立 goroutine 中落库，轮询等待
	deadline := time.Now().Add(2 * time.Second)
	for {
		var count int64
		if err := gdb.Model(&db.VisitEntry{}).Count(&count).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if count >= 1 {
			var entry db.VisitEntry
			if err := gdb.First(&entry).Error; err != nil {
				t.Fatalf("load entry: %v", err)
			}
			if entry.URI != "/ping" || entry.Method != http.MethodGet {
				t.Fatalf("unexpected visit entry: %+v", entry)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("visit was never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLegalPageIsPublic(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/legal", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestPublicCommentRoutesExist(t *testing.T) {
	r, _ := setupTestRouter(t)

	// 未登录发评论：403 而不是 404，说明路由已挂载
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/comment", nil))
	if w.Code == http.StatusNotFound {
		t.Fatalf("POST /comment must be routed")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/comment/1", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing comment must 404, got %d", w.Code)
	}
}
