package secrets

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// KubernetesSource reads every key of a Secret.
type KubernetesSource struct {
	Namespace  string
	SecretName string

	client client.Reader
}

// NewKubernetesSource connects to the cluster selected by kubeconfig, or by
// the standard controller-runtime discovery when kubeconfig is empty.
func NewKubernetesSource(namespace, name, kubeconfig string) (*KubernetesSource, error) {
	restConfig, err := restConfig(kubeconfig)
	if err != nil {
		return nil, err
	}

	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))

	c, err := client.New(restConfig, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}
	return NewKubernetesSourceWithClient(c, namespace, name), nil
}

// NewKubernetesSourceWithClient reads the Secret through c.
func NewKubernetesSourceWithClient(c client.Reader, namespace, name string) *KubernetesSource {
	return &KubernetesSource{Namespace: namespace, SecretName: name, client: c}
}

func restConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig %s: %w", kubeconfig, err)
		}
		return cfg, nil
	}
	cfg, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get Kubernetes config: %w", err)
	}
	return cfg, nil
}

func (s *KubernetesSource) Name() string {
	return fmt.Sprintf("kubernetes secret %s/%s", s.Namespace, s.SecretName)
}

func (s *KubernetesSource) Fetch(ctx context.Context) (map[string]string, error) {
	secret := &corev1.Secret{}
	key := client.ObjectKey{Namespace: s.Namespace, Name: s.SecretName}
	if err := s.client.Get(ctx, key, secret); err != nil {
		return nil, fmt.Errorf("failed to get secret %s/%s: %w", s.Namespace, s.SecretName, err)
	}

	out := make(map[string]string, len(secret.Data)+len(secret.StringData))
	for k, v := range secret.Data {
		out[k] = string(v)
	}
	for k, v := range secret.StringData {
		out[k] = v
	}
	return out, nil
}
