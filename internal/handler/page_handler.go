package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// legalHTML 是法律声明页的内容，浏览无需登录。
const legalHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Legal</title></head>
<body>
<h1>Legal notice</h1>
<p>This site stores a session cookie after you sign in with GitHub. Request
logs keep your IP address and browser identification for at most 24 hours,
after which they are irreversibly anonymized. Aggregated, non-personal
statistics are retained.</p>
<p>Newsletter subscriptions can be cancelled at any time through the link in
every mail; cancelling erases the stored address.</p>
</body>
</html>`

// LegalPage 返回法律声明页。
func (a *API) LegalPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(legalHTML))
}
