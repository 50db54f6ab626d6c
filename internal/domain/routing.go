package domain

// RouteKind 路由决策的判别标签
type RouteKind string

const (
	// RouteNone 无路由匹配（收件人不存在）
	RouteNone RouteKind = "none"
	// RouteSystem 系统域名下的邮箱
	RouteSystem RouteKind = "system"
	// RouteCustom 已验证自定义域名下的邮箱（可携带域名级转发）
	RouteCustom RouteKind = "custom"
	// RoutePremium 高级邮箱精确匹配（可携带邮箱级转发）
	RoutePremium RouteKind = "premium"
	// RouteTemporary 临时邮箱精确匹配
	RouteTemporary RouteKind = "temporary"
)

// RoutingDecision 是收件地址分类后的路由决策。
//
// 每封入站邮件计算一次，只存在于请求生命周期内，从不持久化。
// 调用方应对 Kind 做穷尽匹配，而不是探测字段是否为空。
type RoutingDecision struct {
	Kind        RouteKind
	Domain      string   // 承载域名
	Mailbox     *Mailbox // 目标邮箱（RouteNone 时为 nil；RouteCustom 下可为 nil，表示待按域名兜底创建）
	ForwardTo   string   // 转发目标地址（为空表示不转发）
	OwnerUserID *string  // 邮箱/域名所有者（匿名临时邮箱为 nil）
}

// NoRoute 返回未命中任何邮箱的路由决策。
func NoRoute() RoutingDecision {
	return RoutingDecision{Kind: RouteNone}
}
