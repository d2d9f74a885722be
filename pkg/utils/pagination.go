package utils

// maxPageSize 单页上限，流水类列表防止一次拉全表
const maxPageSize = 100

// Pagination 列表接口通用分页入参，query 绑定
type Pagination struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

// PageResult 分页出参
type PageResult struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// NewPageResult 组装分页出参，回显归一化后的页码
func NewPageResult(list interface{}, total int64, p *Pagination) PageResult {
	return PageResult{List: list, Total: total, Page: p.Page, Limit: p.Limit}
}

// Offset 归一化页码后返回偏移量与每页条数
func (p *Pagination) Offset() (int, int) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = 10
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return (p.Page - 1) * p.Limit, p.Limit
}
