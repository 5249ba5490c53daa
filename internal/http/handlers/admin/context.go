package admin

import (
	handlershared "github.com/CuckCybsacTEST/tokensapp-sub002/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_id")
}
