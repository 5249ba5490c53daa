package shared

import "github.com/CuckCybsacTEST/tokensapp-sub002/internal/constants"

// NormalizePagination 将分页参数收敛到合法区间。
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}
	return page, pageSize
}
