package webhook

import glprovider "reviewhooks/pkg/providers/gitlab"

// GitLabToken returns a Verifier backed by the adapter's X-Gitlab-Token check.
// Only routed when a GitLab secret is configured.
func GitLabToken(adapter *glprovider.Adapter) Verifier {
	return Verifier{
		Check:     adapter.VerifyToken,
		Rejection: "Invalid GitLab token",
	}
}
