package k8s

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/vorot93/otterscan/internal/discovery"
)

// DefaultRPCPort is used when the matched service declares no ports.
const DefaultRPCPort int32 = 8545

// preferredPortNames are checked in order before falling back to the first port.
var preferredPortNames = []string{"rpc", "http"}

// Resolver discovers the JSON-RPC node from the Kubernetes API.
type Resolver struct {
	clientset kubernetes.Interface
	namespace string
	selector  string
}

func NewInClusterResolver(namespace, selector string) (*Resolver, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("build in-cluster config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build kubernetes client: %w", err)
	}

	return NewResolver(clientset, namespace, selector), nil
}

func NewResolver(clientset kubernetes.Interface, namespace, selector string) *Resolver {
	return &Resolver{
		clientset: clientset,
		namespace: namespace,
		selector:  selector,
	}
}

func (r *Resolver) Resolve(ctx context.Context) (discovery.Snapshot, error) {
	services, err := r.clientset.CoreV1().Services(r.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: r.selector,
	})
	if err != nil {
		return discovery.Snapshot{}, fmt.Errorf("list services by selector %q: %w", r.selector, err)
	}

	if len(services.Items) == 0 {
		return discovery.Snapshot{}, fmt.Errorf("no services found for selector %q", r.selector)
	}

	sort.Slice(services.Items, func(i, j int) bool {
		return services.Items[i].Name < services.Items[j].Name
	})

	svc := services.Items[0]
	host := fmt.Sprintf("%s.%s.svc.cluster.local", svc.Name, r.namespace)
	rpcURL, err := url.Parse(fmt.Sprintf("http://%s:%d", host, servicePort(svc)))
	if err != nil {
		return discovery.Snapshot{}, fmt.Errorf("parse rpc URL for service %q: %w", svc.Name, err)
	}

	return discovery.Snapshot{RPCURL: rpcURL.String()}, nil
}

func servicePort(svc corev1.Service) int32 {
	for _, name := range preferredPortNames {
		for _, port := range svc.Spec.Ports {
			if port.Name == name {
				return port.Port
			}
		}
	}
	if len(svc.Spec.Ports) > 0 {
		return svc.Spec.Ports[0].Port
	}
	return DefaultRPCPort
}
