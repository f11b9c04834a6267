package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const paramsKey = "params"

// nonceParamNames are accepted for a payment method nonce, in order.
var nonceParamNames = []string{"nonce", "payment_method_nonce", "paymentMethodNonce"}

// requestParams merges query, form or JSON body, and path parameters.
// Later sources win.
func requestParams(c *gin.Context) map[string]string {
	if v, ok := c.Get(paramsKey); ok {
		return v.(map[string]string)
	}

	params := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	if c.Request.Method != http.MethodGet && c.Request.Body != nil {
		if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
			var body map[string]any
			if err := c.ShouldBindJSON(&body); err == nil {
				for k, v := range body {
					if v != nil {
						params[k] = fmt.Sprint(v)
					}
				}
			}
		} else if err := c.Request.ParseForm(); err == nil {
			for k, v := range c.Request.PostForm {
				if len(v) > 0 {
					params[k] = v[0]
				}
			}
		}
	}

	for _, p := range c.Params {
		params[p.Key] = p.Value
	}

	c.Set(paramsKey, params)
	return params
}

func nonceFromParams(params map[string]string) (string, bool) {
	for _, name := range nonceParamNames {
		if v, ok := params[name]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func missingNonceMessage() string {
	return "Required params: " + strings.Join(nonceParamNames, ", or ")
}
