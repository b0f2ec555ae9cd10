package utils

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

type Marshaller interface {
	Serialize(inObj any) ([]byte, error)
	Deserialize(data []byte, outObj any) error
}

type JsonMarshaller struct{}

func NewJsonMarshaller() *JsonMarshaller {
	return &JsonMarshaller{}
}

func (j *JsonMarshaller) Serialize(t any) ([]byte, error) {
	return json.Marshal(t)
}

func (j *JsonMarshaller) Deserialize(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

type YamlMarshaller struct{}

func NewYamlMarshaller() *YamlMarshaller {
	return &YamlMarshaller{}
}

func (y *YamlMarshaller) Serialize(t any) ([]byte, error) {
	return yaml.Marshal(t)
}

func (y *YamlMarshaller) Deserialize(data []byte, out any) error {
	return yaml.Unmarshal(data, out)
}
