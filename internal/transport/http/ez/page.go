package ez

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 100000 // 再往后的偏移没有意义，也防止 (page-1)*pageSize 溢出
)

// PageQuery ?page=&pageSize=，嵌入到各列表的查询结构里
type PageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}

func (p *PageQuery) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

func (p PageQuery) Offset() int { return (p.Page - 1) * p.PageSize }

// Pagination 分页信息，与列表并列返回
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// PageResult 列表响应：{data: [...], pagination: {...}}
type PageResult[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func NewPage[T any](list []T, total int64, q PageQuery) PageResult[T] {
	if list == nil {
		list = []T{}
	}
	pages := 0
	if q.PageSize > 0 {
		pages = int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	}
	return PageResult[T]{
		Data:       list,
		Pagination: Pagination{Page: q.Page, PageSize: q.PageSize, Total: total, TotalPages: pages},
	}
}
