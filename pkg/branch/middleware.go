package branch

import (
	"context"

	"github.com/gin-gonic/gin"
)

type branchIDKey struct{}

// HeaderName é o cabeçalho que escolhe a filial da requisição
const HeaderName = "branch-id"

// BranchMiddleware usa o cabeçalho branch-id como filial da requisição.
// Sem o cabeçalho, mantém a filial do token.
func BranchMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		branchID := c.GetHeader(HeaderName)
		if branchID == "" {
			branchID = c.GetString("branch_id")
		}
		if branchID != "" {
			c.Set("branch_id", branchID)
			c.Request = c.Request.WithContext(SetBranchIDContext(c.Request.Context(), branchID))
		}
		c.Next()
	}
}

// SetBranchIDContext adiciona o ID da filial ao contexto
func SetBranchIDContext(ctx context.Context, branchID string) context.Context {
	return context.WithValue(ctx, branchIDKey{}, branchID)
}

// GetBranchID recupera o branch_id do contexto, se existir
func GetBranchID(ctx context.Context) string {
	if branchID, ok := ctx.Value(branchIDKey{}).(string); ok {
		return branchID
	}
	return ""
}
