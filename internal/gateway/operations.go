package gateway

import (
	"net/http"
	"path"
	"strings"

	"github.com/medcore/hospital-gateway/internal/core/domain"
)

// User administration is reachable under both prefixes.
var userCollections = []string{"/api/auth/users", "/api/users"}

// ClassifyOperation maps a request onto the Operation the access policy
// evaluates. Paths the gateway does not recognise fall into OpUnclassified.
func ClassifyOperation(method, p string) domain.Operation {
	p = strings.TrimRight(p, "/")
	switch p {
	case "/api/auth/login":
		return domain.OpLogin
	case "/api/auth/validate":
		return domain.OpValidate
	case "/api/auth/register":
		return domain.OpRegister
	}

	for _, base := range userCollections {
		if p == base || strings.HasPrefix(p, base+"/") {
			return classifyUserOperation(method, strings.Trim(strings.TrimPrefix(p, base), "/"))
		}
	}

	if rest, ok := strings.CutPrefix(p, "/api/"); ok {
		resource, _, _ := strings.Cut(rest, "/")
		for _, known := range domain.RecordResources {
			if resource == known {
				return domain.RecordOperation(resource, verbFor(method))
			}
		}
	}
	return domain.OpUnclassified
}

func classifyUserOperation(method, rest string) domain.Operation {
	segments := []string{}
	if rest != "" {
		segments = strings.Split(rest, "/")
	}

	switch len(segments) {
	case 0:
		switch method {
		case http.MethodGet, http.MethodHead:
			return domain.OpListUsers
		case http.MethodPost:
			return domain.OpRegister
		}
	case 1:
		if segments[0] == "active" && method == http.MethodGet {
			return domain.OpListActive
		}
		switch method {
		case http.MethodGet, http.MethodHead:
			return domain.OpFetchUser
		case http.MethodPut, http.MethodPatch:
			return domain.OpUpdateUser
		case http.MethodDelete:
			return domain.OpDeactivateUser
		}
	case 2:
		if method != http.MethodGet {
			break
		}
		switch segments[0] {
		case "role":
			return domain.OpListByRole
		case "username":
			return domain.OpFetchUser
		}
	}
	return domain.OpUnclassified
}

func verbFor(method string) domain.Verb {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return domain.VerbRead
	case http.MethodDelete:
		return domain.VerbDelete
	default:
		return domain.VerbWrite
	}
}

// cleanPath resolves dot segments so that classification and routing see the
// same path the backend will. A trailing slash is kept.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}
