package client

import (
	"net/http"

	"github.com/fivetwenty-io/healthtrack/pkg/healthtrack"
)

// Endpoint paths, relative to the session base URL.
const (
	pathAuthTest    = "auth/test"
	pathAuthLogin   = "auth/login"
	pathUserInfo    = "services/uaa/api/users/get-user"
	pathInitCheck   = "services/period/api/init-period/check"
	pathSymptomSync = "services/period/api/user-condition/sync"
	pathPeriodSync  = "services/period/api/user-period/sync"
)

// LoginAPI describes the endpoints reachable without credentials.
var LoginAPI = loginAPI{}

// UserAPI describes the endpoints of the signed-in user.
var UserAPI = userAPI{}

type loginAPI struct{}

// Test checks the service is up.
func (loginAPI) Test() healthtrack.Descriptor {
	return healthtrack.Descriptor{
		Name:     "login.test",
		Path:     pathAuthTest,
		Method:   http.MethodGet,
		Encoding: healthtrack.EncodingNone,
		Audience: healthtrack.AudienceUnauthenticated,
	}
}

// Auth posts params as a JSON body.
func (loginAPI) Auth(params *healthtrack.LoginAuth) healthtrack.Descriptor {
	return healthtrack.Descriptor{
		Name:     "login.auth",
		Path:     pathAuthLogin,
		Method:   http.MethodPost,
		Encoding: healthtrack.EncodingJSON,
		Body:     params,
		Audience: healthtrack.AudienceUnauthenticated,
	}
}

type userAPI struct{}

func (userAPI) UserInfo() healthtrack.Descriptor {
	return authenticatedGet("user.info", pathUserInfo)
}

func (userAPI) InitInfo() healthtrack.Descriptor {
	return authenticatedGet("user.init", pathInitCheck)
}

func (userAPI) PeriodSync() healthtrack.Descriptor {
	return authenticatedGet("user.periods", pathPeriodSync)
}

// SymptomLog requests one page of symptom records.
func (userAPI) SymptomLog(page, size int) healthtrack.Descriptor {
	descriptor := authenticatedGet("user.symptoms", pathSymptomSync)
	descriptor.Encoding = healthtrack.EncodingQuery
	descriptor.Params = map[string]interface{}{
		"pageNo":   page,
		"pageSize": size,
	}

	return descriptor
}

func authenticatedGet(name, path string) healthtrack.Descriptor {
	return healthtrack.Descriptor{
		Name:     name,
		Path:     path,
		Method:   http.MethodGet,
		Encoding: healthtrack.EncodingNone,
		Audience: healthtrack.AudienceAuthenticated,
	}
}
