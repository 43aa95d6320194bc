package router

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// APIModule 模块可选择实现其中一个或两个接口
type APIModule interface{ MountAPI(*gin.RouterGroup) }
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂）
// 不实现则默认 100
type prioritizer interface{ Priority() int }

// Registry 由 main 组装，api/admin 两个引擎各自挂载自己关心的一面
type Registry struct {
	apiMods   []APIModule
	adminMods []AdminModule
}

func NewRegistry(mods ...any) *Registry {
	r := &Registry{}
	for _, m := range mods {
		r.Register(m)
	}
	return r
}

// Register 根据类型断言分发到 API/Admin 列表
func (r *Registry) Register(mod any) {
	if m, ok := mod.(APIModule); ok {
		r.apiMods = append(r.apiMods, m)
	}
	if m, ok := mod.(AdminModule); ok {
		r.adminMods = append(r.adminMods, m)
	}
}

// MountAllAPI 在 /api/v1 上挂载所有 API 模块
func (r *Registry) MountAllAPI(api *gin.RouterGroup) {
	mods := append([]APIModule(nil), r.apiMods...)
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAPI(api)
	}
}

// MountAllAdmin 在 /admin/v1 上挂载所有 Admin 模块
func (r *Registry) MountAllAdmin(admin *gin.RouterGroup) {
	mods := append([]AdminModule(nil), r.adminMods...)
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAdmin(admin)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
