package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tilsley/repoproxy/apps/proxy/internal/repos"
)

func repoRef(c *gin.Context) repos.RepoRef {
	return repos.RepoRef{Owner: c.Query("owner"), Repo: c.Query("repo"), RefInput: c.Query("ref")}
}

// intQuery parses an optional integer parameter.
func intQuery(c *gin.Context, name string, def int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, repos.InvalidInputError{Field: name, Reason: "must be an integer"}
	}
	return n, nil
}

// boolQuery parses an optional flag; absent means false.
func boolQuery(c *gin.Context, name string) (bool, error) {
	v := c.Query(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, repos.InvalidInputError{Field: name, Reason: "must be a boolean"}
	}
	return b, nil
}
