package service

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/inklog/internal/db"
	"github.com/oschwald/geoip2-golang"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAnalyticsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:analytics-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := gdb.AutoMigrate(&db.VisitEntry{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gdb
}

// stubGeo 返回固定的查询结果或错误。
type stubGeo struct {
	record *geoip2.City
	err    error
}

func (s stubGeo) City(net.IP) (*geoip2.City, error) {
	return s.record, s.err
}

func parisRecord() *geoip2.City {
	rec := &geoip2.City{}
	rec.City.Names = map[string]string{"en": "Paris"}
	rec.Continent.Code = "EU"
	rec.Country.IsoCode = "FR"
	rec.Location.Latitude = 48.8566
	rec.Location.Longitude = 2.3522
	rec.Location.AccuracyRadius = 20
	rec.Location.TimeZone = "Europe/Paris"
	return rec
}

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestRecordEnrichesEntry(t *testing.T) {
	gdb := setupAnalyticsTestDB(t)
	svc := NewAnalyticsService(gdb, stubGeo{record: parisRecord()})

	err := svc.Record(Visit{
		IPAddress: "203.0.113.7:51234",
		UserAgent: chromeUA,
		Referrer:  "https://example.com/",
		Method:    "GET",
		URI:       "/a/1",
		At:        time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	var entry db.VisitEntry
	if err := gdb.First(&entry).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.IPAddress == nil || *entry.IPAddress != "203.0.113.7:51234" {
		t.Fatalf("unexpected ip: %v", entry.IPAddress)
	}
	if entry.City == nil || *entry.City != "Paris" {
		t.Fatalf("expected city Paris, got %v", entry.City)
	}
	if entry.Country == nil || *entry.Country != "FR" {
		t.Fatalf("expected country FR, got %v", entry.Country)
	}
	if entry.TimeZone == nil || *entry.TimeZone != "Europe/Paris" {
		t.Fatalf("expected timezone, got %v", entry.TimeZone)
	}
	if entry.BrowserFamily == nil || *entry.BrowserFamily != "Chrome" {
		t.Fatalf("expected browser Chrome, got %v", entry.BrowserFamily)
	}
	if entry.OSFamily == nil || *entry.OSFamily != "Windows" {
		t.Fatalf("expected os Windows, got %v", entry.OSFamily)
	}
	if entry.DeviceFamily == nil || *entry.DeviceFamily != "Desktop" {
		t.Fatalf("expected device Desktop, got %v", entry.DeviceFamily)
	}
}

func TestRecordDegradesWithoutEnrichment(t *testing.T) {
	gdb := setupAnalyticsTestDB(t)

	// geo 为 nil：跳过地理位置，但访问仍被记录
	svc := NewAnalyticsService(gdb, nil)
	if err := svc.Record(Visit{IPAddress: "203.0.113.7", Method: "GET", URI: "/ping", At: time.Now()}); err != nil {
		t.Fatalf("record without geo: %v", err)
	}

	var entry db.VisitEntry
	if err := gdb.First(&entry).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.City != nil || entry.Country != nil {
		t.Fatalf("geo fields must stay empty without a locator")
	}
	if entry.DeviceFamily != nil {
		t.Fatalf("device fields must stay empty without a user agent")
	}

	// 查询出错同样只降级
	svc = NewAnalyticsService(gdb, stubGeo{err: errors.New("corrupt database")})
	if err := svc.Record(Visit{IPAddress: "203.0.113.8", Method: "GET", URI: "/ping", At: time.Now().Add(time.Second)}); err != nil {
		t.Fatalf("record with failing geo: %v", err)
	}
}

func TestRecordIgnoresDuplicateVisits(t *testing.T) {
	gdb := setupAnalyticsTestDB(t)
	svc := NewAnalyticsService(gdb, nil)

	visit := Visit{
		IPAddress: "203.0.113.7",
		Method:    "GET",
		URI:       "/a/1",
		At:        time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := svc.Record(visit); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := svc.Record(visit); err != nil {
		t.Fatalf("duplicate record must not error: %v", err)
	}

	var count int64
	if err := gdb.Model(&db.VisitEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 entry after duplicate insert, got %d", count)
	}
}

func TestAnonymizeSweep(t *testing.T) {
	gdb := setupAnalyticsTestDB(t)
	svc := NewAnalyticsService(gdb, stubGeo{record: parisRecord()})

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	// 30 小时前：超出保留期
	old := Visit{IPAddress: "203.0.113.7", UserAgent: chromeUA, Method: "GET", URI: "/a/1", At: now.Add(-30 * time.Hour)}
	// 23 小时前：仍在保留期内
	recent := Visit{IPAddress: "203.0.113.8", UserAgent: chromeUA, Method: "GET", URI: "/a/2", At: now.Add(-23 * time.Hour)}
	for _, v := range []Visit{old, recent} {
		if err := svc.Record(v); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	affected, err := svc.Anonymize(now)
	if err != nil {
		t.Fatalf("anonymize: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 anonymized row, got %d", affected)
	}

	var oldEntry db.VisitEntry
	if err := gdb.Where("uri = ?", "/a/1").First(&oldEntry).Error; err != nil {
		t.Fatalf("load old entry: %v", err)
	}
	if oldEntry.IPAddress != nil || oldEntry.UserAgent != nil {
		t.Fatalf("ip and user agent must be cleared, got %v %v", oldEntry.IPAddress, oldEntry.UserAgent)
	}
	// 派生字段保留
	if oldEntry.City == nil || *oldEntry.City != "Paris" {
		t.Fatalf("geo fields must survive anonymization, got %v", oldEntry.City)
	}
	if oldEntry.BrowserFamily == nil || *oldEntry.BrowserFamily != "Chrome" {
		t.Fatalf("device fields must survive anonymization, got %v", oldEntry.BrowserFamily)
	}
	if oldEntry.Method != "GET" || oldEntry.URI != "/a/1" {
		t.Fatalf("method and uri must survive anonymization")
	}

	var recentEntry db.VisitEntry
	if err := gdb.Where("uri = ?", "/a/2").First(&recentEntry).Error; err != nil {
		t.Fatalf("load recent entry: %v", err)
	}
	if recentEntry.IPAddress == nil || recentEntry.UserAgent == nil {
		t.Fatalf("entries inside the retention window must not be touched")
	}

	// 幂等：重复执行不再影响任何行
	again, err := svc.Anonymize(now)
	if err != nil {
		t.Fatalf("second anonymize: %v", err)
	}
	if again != 0 {
		t.Fatalf("second sweep must affect 0 rows, got %d", again)
	}
}
