package service

import (
	"context"
	"log"
	"net"
	"time"

	"github.com/inklog/internal/db"
	"github.com/mileusna/useragent"
	"github.com/oschwald/geoip2-golang"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RetentionWindow 是访问记录中个人数据（IP、User-Agent）的保留期。
const RetentionWindow = 24 * time.Hour

// DefaultSweepInterval 是匿名化任务的默认执行间隔。
// 只需保证 24 小时的界限在该粒度内被执行到，不要求精确到秒。
const DefaultSweepInterval = 10 * time.Second

// geoLocator 抽象离线 GeoIP 查询，便于测试替换。
// *geoip2.Reader 实现了该接口。
type geoLocator interface {
	City(ip net.IP) (*geoip2.City, error)
}

// AnalyticsService 负责访问记录的采集、丰富与定期匿名化。
type AnalyticsService struct {
	db  *gorm.DB
	geo geoLocator
	now func() time.Time
}

// NewAnalyticsService 创建 AnalyticsService。geo 可以为 nil，
// 此时跳过地理位置推导（例如 GeoIP 数据库缺失时）。
func NewAnalyticsService(gdb *gorm.DB, geo geoLocator) *AnalyticsService {
	return &AnalyticsService{db: gdb, geo: geo, now: time.Now}
}

// WithClock 允许在测试中替换时钟。
func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	if now != nil {
		s.now = now
	}
	return s
}

// Visit 描述一次待记录的访问。
type Visit struct {
	IPAddress string
	UserAgent string
	Referrer  string
	Method    string
	URI       string
	At        time.Time
}

// Record 将访问写入数据库，并尽力附加地理位置与设备信息。
// 推导失败只降级为"信息缺失"，绝不让所属请求失败。
// 重复插入通过唯一索引静默忽略，属机会式去重而非严格的至多一次。
func (s *AnalyticsService) Record(v Visit) error {
	at := v.At
	if at.IsZero() {
		at = s.now()
	}

	entry := db.VisitEntry{
		VisitedAt: at,
		Method:    v.Method,
		URI:       v.URI,
	}
	if v.IPAddress != "" {
		entry.IPAddress = &v.IPAddress
	}
	if v.UserAgent != "" {
		entry.UserAgent = &v.UserAgent
	}
	if v.Referrer != "" {
		entry.Referrer = &v.Referrer
	}

	s.locate(&entry, v.IPAddress)
	s.classify(&entry, v.UserAgent)

	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error
}

// locate 根据 IP 填充地理位置字段。无法解析时保持缺失。
func (s *AnalyticsService) locate(entry *db.VisitEntry, addr string) {
	if s.geo == nil || addr == "" {
		return
	}

	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return
	}

	record, err := s.geo.City(ip)
	if err != nil {
		log.Printf("analytics: geolocation lookup failed for %s: %v", host, err)
		return
	}
	if record == nil {
		return
	}

	if name, ok := record.City.Names["en"]; ok && name != "" {
		entry.City = &name
	}
	if code := record.Continent.Code; code != "" {
		entry.Continent = &code
	}
	if code := record.Country.IsoCode; code != "" {
		entry.Country = &code
	}
	lat, lon := record.Location.Latitude, record.Location.Longitude
	if lat != 0 || lon != 0 {
		entry.Latitude = &lat
		entry.Longitude = &lon
	}
	if radius := record.Location.AccuracyRadius; radius != 0 {
		entry.AccuracyRadius = &radius
	}
	if tz := record.Location.TimeZone; tz != "" {
		entry.TimeZone = &tz
	}
}

// classify 根据 User-Agent 填充设备字段。解析不出时保持缺失。
func (s *AnalyticsService) classify(entry *db.VisitEntry, rawUA string) {
	if rawUA == "" {
		return
	}

	ua := useragent.Parse(rawUA)
	if ua.Name == "" && ua.OS == "" && ua.Device == "" {
		return
	}

	family := ua.Device
	if family == "" {
		switch {
		case ua.Bot:
			family = "Bot"
		case ua.Mobile:
			family = "Mobile"
		case ua.Tablet:
			family = "Tablet"
		case ua.Desktop:
			family = "Desktop"
		default:
			family = "Other"
		}
	}
	entry.DeviceFamily = &family

	if ua.OS != "" {
		os := ua.OS
		entry.OSFamily = &os
	}
	if ua.OSVersion != "" {
		v := ua.OSVersion
		entry.OSVersion = &v
	}
	if ua.Name != "" {
		name := ua.Name
		entry.BrowserFamily = &name
	}
	if ua.Version != "" {
		v := ua.Version
		entry.BrowserVersion = &v
	}
}

// Anonymize 将保留期之外仍带有 IP 或 User-Agent 的记录就地置空。
// 派生的地理位置、设备、方法与 URI 字段不受影响。
// 该操作单调且幂等：对同一批数据重复执行，第二次不会影响任何行。
func (s *AnalyticsService) Anonymize(now time.Time) (int64, error) {
	cutoff := now.Add(-RetentionWindow)
	result := s.db.Model(&db.VisitEntry{}).
		Where("visited_at < ? AND (ip_address IS NOT NULL OR user_agent IS NOT NULL)", cutoff).
		Updates(map[string]interface{}{
			"ip_address": nil,
			"user_agent": nil,
		})
	return result.RowsAffected, result.Error
}

// StartSweeper 启动后台匿名化任务，按固定间隔执行直到 ctx 结束。
// 单次执行失败只记录日志，下一个周期会对同一谓词重试，自动补齐。
func (s *AnalyticsService) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Anonymize(s.now()); err != nil {
					log.Printf("analytics: anonymization sweep failed: %v", err)
				}
			}
		}
	}()
}
