package public

import (
	"errors"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/http/response"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var tokenLookupErrorRules = []mappedHandlerError{
	{target: service.ErrTokenInvalid, code: response.CodeBadRequest, msg: "令牌参数无效"},
	{target: service.ErrTokenNotFound, code: response.CodeNotFound, msg: "令牌不存在"},
}

var tokenRevealErrorRules = []mappedHandlerError{
	{target: service.ErrTokenInvalid, code: response.CodeBadRequest, msg: "令牌参数无效"},
	{target: service.ErrTokenNotFound, code: response.CodeNotFound, msg: "令牌不存在"},
	{target: service.ErrTokenDisabled, code: response.CodeConflict, msg: "令牌已停用"},
	{target: service.ErrTokenUpcoming, code: response.CodeConflict, msg: "活动尚未开始"},
	{target: service.ErrTokenExpired, code: response.CodeConflict, msg: "令牌已过期"},
	{target: service.ErrTokenAlreadyRevealed, code: response.CodeConflict, msg: "令牌已被使用"},
}

func respondTokenLookupError(c *gin.Context, err error) {
	respondWithMappedError(c, err, tokenLookupErrorRules, response.CodeInternal, "获取令牌失败")
}

func respondTokenRevealError(c *gin.Context, err error) {
	respondWithMappedError(c, err, tokenRevealErrorRules, response.CodeInternal, "揭示令牌失败")
}
