package utils

import "github.com/gin-gonic/gin"

// JSONResponse defines the uniform structure for API responses. Target, when
// set, tells the client where to navigate next.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Target  string      `json:"target,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message, target string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Target:  target,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", "", data)
}

// SuccessTo returns a success response carrying a user-facing message and a
// follow-up navigation target.
func SuccessTo(ctx *gin.Context, message, target string) {
	Respond(ctx, 200, 0, message, target, nil)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, "", nil)
}

// FailBack returns an error response with a navigation target, mirroring the
// failure views that send the user somewhere to retry.
func FailBack(ctx *gin.Context, status int, code int, message, target string) {
	Respond(ctx, status, code, message, target, nil)
}
