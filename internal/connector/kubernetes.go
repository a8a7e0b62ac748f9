package connector

import (
	"context"
	"fmt"

	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/topology"
	v1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// TopologyKey is the ConfigMap data key holding the topology document.
const TopologyKey = "topology.yaml"

// KubeConnector keeps the topology in a ConfigMap and publishes every
// breakdown as one entry of a second ConfigMap, "<name>-breakdowns", which
// the domain controllers watch.
type KubeConnector struct {
	// Kubernetes official library client for
	// contacting API-server.
	clientset kubernetes.Interface

	namespace string
	configMap string
}

// NewKubeConnector connects with kubeconfig, or with the in-cluster
// service account when kubeconfig is empty.
func NewKubeConnector(kubeconfig, namespace, configMap string) (*KubeConnector, error) {
	var restConfig *rest.Config
	var err error
	if kubeconfig == "" {
		restConfig, err = rest.InClusterConfig()
	} else {
		restConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		log.Err(err).Send()

		return nil, fmt.Errorf("can't connect to kubernetes cluster")
	}

	clientSet, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		log.Err(err).Send()

		return nil, fmt.Errorf("could not init clients")
	}

	return NewKubeConnectorForClient(clientSet, namespace, configMap), nil
}

func NewKubeConnectorForClient(clientset kubernetes.Interface, namespace, configMap string) *KubeConnector {
	return &KubeConnector{
		clientset: clientset,
		namespace: namespace,
		configMap: configMap,
	}
}

func (kc *KubeConnector) breakdownsName() string {
	return kc.configMap + "-breakdowns"
}

func (kc *KubeConnector) LoadTopology(ctx context.Context) (*topology.Topology, error) {
	log.Info().Msgf("loading topology from config map %s/%s", kc.namespace, kc.configMap)

	cm, err := kc.clientset.CoreV1().ConfigMaps(kc.namespace).Get(ctx, kc.configMap, metav1.GetOptions{})
	if err != nil {
		log.Err(err).Send()

		return nil, fmt.Errorf("could not get config map %s", kc.configMap)
	}

	data, ok := cm.Data[TopologyKey]
	if !ok {
		return nil, fmt.Errorf("%w: config map %s has no %s", model.ErrNotFound, kc.configMap, TopologyKey)
	}

	return topology.Parse([]byte(data))
}

func (kc *KubeConnector) Publish(ctx context.Context, breakdown *model.TaggedBreakdown) error {
	configMaps := kc.clientset.CoreV1().ConfigMaps(kc.namespace)

	cm, err := configMaps.Get(ctx, kc.breakdownsName(), metav1.GetOptions{})
	if k8serrors.IsNotFound(err) {
		cm = &v1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{
				Name:      kc.breakdownsName(),
				Namespace: kc.namespace,
			},
			Data: map[string]string{
				breakdown.ConnectionId: breakdown.String(),
			},
		}
		_, err = configMaps.Create(ctx, cm, metav1.CreateOptions{})
		return err
	}
	if err != nil {
		return err
	}

	if cm.Data == nil {
		cm.Data = make(map[string]string)
	}
	cm.Data[breakdown.ConnectionId] = breakdown.String()
	_, err = configMaps.Update(ctx, cm, metav1.UpdateOptions{})

	return err
}

func (kc *KubeConnector) Withdraw(ctx context.Context, connectionId string) error {
	configMaps := kc.clientset.CoreV1().ConfigMaps(kc.namespace)

	cm, err := configMaps.Get(ctx, kc.breakdownsName(), metav1.GetOptions{})
	if err != nil {
		return err
	}
	if _, ok := cm.Data[connectionId]; !ok {
		return fmt.Errorf("%w: connection %s was never published", model.ErrNotFound, connectionId)
	}

	delete(cm.Data, connectionId)
	_, err = configMaps.Update(ctx, cm, metav1.UpdateOptions{})

	return err
}
