package enums

// Status 文章发布状态，枚举类型：0=草稿, 1=已发布, 2=已下线
// - 底层类型为 int，便于数据库存储与查询参数绑定。
// - 状态间允许的流转关系由 lifecycle 包统一校验，任何地方都不应绕过它直接改写状态。
type Status int

const (
	// Draft 草稿：仅作者可见，从未或尚未对外披露。
	Draft Status = 0
	// Published 已发布：对外可见（若带有未来的发布时间，则在时间到达前视为尚不可见）。
	Published Status = 1
	// Offline 已下线：曾经发布后被撤下，或草稿被直接废弃；publish_time 保留首次发布的历史。
	Offline Status = 2
)

// String 返回状态的可读名称，用于日志与错误信息。
func (s Status) String() string {
	switch s {
	case Draft:
		return "Draft"
	case Published:
		return "Published"
	case Offline:
		return "Offline"
	default:
		return "Unknown"
	}
}

// IsValid 判断是否为合法的状态值。
func (s Status) IsValid() bool {
	return s == Draft || s == Published || s == Offline
}
