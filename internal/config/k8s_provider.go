package config

import (
	"context"
	"os"
)

// K8sProvider retrieves secrets mounted into a Kubernetes pod.
// K8s mounts secrets as files by default, so this delegates to FileProvider
// but only reports itself available when actually running in a cluster.
type K8sProvider struct {
	fileProvider *FileProvider
	namespace    string
}

// NewK8sProvider creates a new Kubernetes secret provider.
// Custom secrets are typically mounted at /var/secrets or a custom path.
func NewK8sProvider(secretsPath, namespace string) *K8sProvider {
	if secretsPath == "" {
		secretsPath = "/var/secrets"
	}
	if namespace == "" {
		if ns, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace"); err == nil {
			namespace = string(ns)
		} else {
			namespace = "default"
		}
	}

	return &K8sProvider{
		fileProvider: NewFileProvider(secretsPath),
		namespace:    namespace,
	}
}

// GetSecret retrieves a secret from the mounted secret files
func (k *K8sProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return k.fileProvider.GetSecret(ctx, key)
}

// Name returns the provider name
func (k *K8sProvider) Name() string {
	return "kubernetes"
}

// IsAvailable checks if running in a Kubernetes environment
func (k *K8sProvider) IsAvailable(ctx context.Context) bool {
	if _, err := os.Stat("/var/run/secrets/kubernetes.io/serviceaccount/token"); err == nil {
		return k.fileProvider.IsAvailable(ctx)
	}
	return false
}

// GetNamespace returns the current Kubernetes namespace
func (k *K8sProvider) GetNamespace() string {
	return k.namespace
}
