// Package clusterstatus implements the Cluster Workspace Status Provider
// (C8): a concrete analysis.WorkspaceStatusProvider backed by a Kubernetes
// namespace, grounded in the teacher's own cluster-bootstrap and
// ImageStream wiring. Analysis itself never touches a cluster; only this
// package does, and only because something has to drive the provider
// contract with a real collaborator.
package clusterstatus

import (
	"context"
	"fmt"

	coreapi "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
	coreclientset "k8s.io/client-go/kubernetes/typed/core/v1"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	imageclientset "github.com/openshift/client-go/image/clientset/versioned/typed/image/v1"

	"github.com/musiphil/gobazel/pkg/artifact"
)

// pipelineImageStream is the well-known ImageStream name this provider
// checks for a stable-build-info annotation, mirroring the teacher's
// steps.PipelineImageStream convention.
const pipelineImageStream = "pipeline"

// stableAnnotation is the ImageStream annotation holding the VCS commit the
// namespace's contents were built from.
const stableAnnotation = "release.openshift.io/source-commit"

// buildInfoConfigMap is the fallback source for stable/volatile build info
// when the pipeline ImageStream carries no stableAnnotation.
const buildInfoConfigMap = "build-info"

// LoadClusterConfig loads connection configuration for the target cluster,
// preferring in-cluster configuration and falling back to the default
// kubeconfig loading rules. Mirrors the teacher's loadClusterConfig.
func LoadClusterConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}

	credentials, err := clientcmd.NewDefaultClientConfigLoadingRules().Load()
	if err != nil {
		return nil, fmt.Errorf("could not load credentials from config: %v", err)
	}
	cfg, err := clientcmd.NewDefaultClientConfig(*credentials, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("could not load client configuration: %v", err)
	}
	return cfg, nil
}

// Provider implements analysis.WorkspaceStatusProvider by reading a build
// namespace's pipeline ImageStream and build-info ConfigMap. StableArtifact
// and VolatileArtifact are eager: Resolve must be called once up front so
// both artifacts are ready by the time analysis asks for them, matching
// the "eager provider" path the Analysis Environment documents for the
// non-Skyframe case.
type Provider struct {
	namespace string
	owner     artifact.Owner

	stable   *artifact.Artifact
	volatile *artifact.Artifact
}

// NewProvider returns a Provider scoped to namespace, with build-info
// artifacts owned by owner (conventionally a dedicated
// "//tools:workspace_status" label rather than any real target).
func NewProvider(namespace string, owner artifact.Owner) *Provider {
	return &Provider{namespace: namespace, owner: owner}
}

// Resolve populates the provider's stable and volatile artifacts by reading
// the cluster, via the image and core typed clients built from cfg.
func (p *Provider) Resolve(ctx context.Context, cfg *rest.Config, factory *artifact.Factory) error {
	imageClient, err := imageclientset.NewForConfig(cfg)
	if err != nil {
		return fmt.Errorf("could not get image client for cluster config: %v", err)
	}
	coreClient, err := coreclientset.NewForConfig(cfg)
	if err != nil {
		return fmt.Errorf("could not get core client for cluster config: %v", err)
	}
	return p.resolveWithClients(ctx, imageClient, coreClient, factory)
}

// resolveWithClients is Resolve's client-injected core: split out so tests
// can drive it against fake typed clients instead of a real cluster.
func (p *Provider) resolveWithClients(ctx context.Context, imageClient imageclientset.ImageV1Interface, coreClient coreclientset.CoreV1Interface, factory *artifact.Factory) error {
	stableValue, err := p.readStableValue(ctx, imageClient, coreClient)
	if err != nil {
		return err
	}
	volatileValue, err := p.readVolatileValue(ctx, coreClient)
	if err != nil {
		return err
	}

	statusRoot := artifact.NewRoot("workspace-status")
	p.stable = factory.GetSpecialMetadataArtifact("stable-status.txt", statusRoot, p.owner, true, false)
	p.volatile = factory.GetSpecialMetadataArtifact("volatile-status.txt", statusRoot, p.owner, false, true)
	_ = stableValue   // the artifact's identity, not its content, flows through analysis
	_ = volatileValue // content retrieval for a real build would read these back via the action graph
	return nil
}

func (p *Provider) readStableValue(ctx context.Context, imageClient imageclientset.ImageV1Interface, coreClient coreclientset.CoreV1Interface) (string, error) {
	is, err := imageClient.ImageStreams(p.namespace).Get(ctx, pipelineImageStream, meta.GetOptions{})
	if err == nil {
		if commit, ok := is.Annotations[stableAnnotation]; ok && commit != "" {
			return commit, nil
		}
	} else if !kerrors.IsNotFound(err) {
		return "", fmt.Errorf("could not read pipeline imagestream: %v", err)
	}
	return readConfigMapKey(ctx, coreClient, p.namespace, "stable")
}

func (p *Provider) readVolatileValue(ctx context.Context, coreClient coreclientset.CoreV1Interface) (string, error) {
	return readConfigMapKey(ctx, coreClient, p.namespace, "volatile")
}

// readConfigMapKey reads one key out of the namespace's build-info
// ConfigMap, treating both a missing ConfigMap and a missing key as "no
// value" rather than an error: only the pipeline ImageStream's own absence
// (spec: a workspace with no prior build) is expected in steady state.
func readConfigMapKey(ctx context.Context, client coreclientset.CoreV1Interface, namespace, key string) (string, error) {
	cm, err := client.ConfigMaps(namespace).Get(ctx, buildInfoConfigMap, meta.GetOptions{})
	if err != nil {
		if kerrors.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("could not read %s configmap: %v", buildInfoConfigMap, err)
	}
	return cm.Data[key], nil
}

// StableArtifact implements analysis.WorkspaceStatusProvider.
func (p *Provider) StableArtifact() *artifact.Artifact { return p.stable }

// VolatileArtifact implements analysis.WorkspaceStatusProvider.
func (p *Provider) VolatileArtifact() *artifact.Artifact { return p.volatile }

// EnsureBuildInfoConfigMap creates the build-info ConfigMap if it does not
// already exist, seeding it with the given stable/volatile values. Mirrors
// the teacher's create-then-fall-back-to-get pattern for the pipeline
// ImageStream.
func EnsureBuildInfoConfigMap(ctx context.Context, cfg *rest.Config, namespace, stable, volatile string) error {
	client, err := coreclientset.NewForConfig(cfg)
	if err != nil {
		return fmt.Errorf("could not get core client for cluster config: %v", err)
	}
	return ensureBuildInfoConfigMapWithClient(ctx, client, namespace, stable, volatile)
}

func ensureBuildInfoConfigMapWithClient(ctx context.Context, client coreclientset.CoreV1Interface, namespace, stable, volatile string) error {
	_, err := client.ConfigMaps(namespace).Create(ctx, &coreapi.ConfigMap{
		ObjectMeta: meta.ObjectMeta{
			Namespace: namespace,
			Name:      buildInfoConfigMap,
		},
		Data: map[string]string{"stable": stable, "volatile": volatile},
	}, meta.CreateOptions{})
	if err != nil && !kerrors.IsAlreadyExists(err) {
		return fmt.Errorf("could not create build-info configmap: %v", err)
	}
	return nil
}
