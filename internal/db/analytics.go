package db

import "time"

// VisitEntry 记录每个 HTTP 请求的访问信息。
// IPAddress 与 UserAgent 属于个人数据，超过保留期后由后台任务置空；
// 置空后不会再被回填。派生的地理位置与设备字段长期保留。
type VisitEntry struct {
	ID        uint      `gorm:"primaryKey"`
	VisitedAt time.Time `gorm:"index;uniqueIndex:idx_visit_dedup"`

	IPAddress *string `gorm:"uniqueIndex:idx_visit_dedup"`
	UserAgent *string
	Referrer  *string

	Method string `gorm:"uniqueIndex:idx_visit_dedup"`
	URI    string `gorm:"uniqueIndex:idx_visit_dedup"`

	// 地理位置信息，由离线 GeoIP 库根据 IP 推导，可能缺失。
	City           *string
	Continent      *string
	Country        *string
	Latitude       *float64
	Longitude      *float64
	AccuracyRadius *uint16
	TimeZone       *string

	// 设备信息，由 User-Agent 解析得出，可能缺失。
	DeviceFamily   *string
	OSFamily       *string
	OSVersion      *string
	BrowserFamily  *string
	BrowserVersion *string
}

// TableName 指定自定义表名。
func (VisitEntry) TableName() string {
	return "visit_entries"
}
