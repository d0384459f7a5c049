package config

import (
	"fmt"

	"github.com/raidersec/raider/operation"
	"github.com/raidersec/raider/plugin"
)

func buildOperations(docs []OperationDoc, registry map[string]plugin.Plugin) ([]operation.Operation, error) {
	ops := make([]operation.Operation, 0, len(docs))
	for _, d := range docs {
		op, err := buildOperation(d, registry)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func buildOperation(d OperationDoc, registry map[string]plugin.Plugin) (operation.Operation, error) {
	switch {
	case d.Next != nil:
		return operation.Goto(*d.Next), nil

	case d.Error != nil:
		return operation.NewError(*d.Error), nil

	case d.PrintBody:
		return operation.PrintBody(), nil

	case d.PrintHeaders != nil:
		return operation.PrintHeaders(d.PrintHeaders...), nil

	case d.PrintCookies != nil:
		return operation.PrintCookies(d.PrintCookies...), nil

	case d.Print != nil:
		items := make([]any, 0, len(d.Print))
		for _, item := range d.Print {
			if ref, ok := lookupRef(item, registry); ok {
				items = append(items, ref)
				continue
			}
			items = append(items, item)
		}
		return operation.NewPrint(items...), nil

	case d.Save != nil:
		return buildSave(*d.Save, registry)

	case d.Http != nil:
		return buildHttp(*d.Http, registry)

	case d.Grep != nil:
		return buildGrep(*d.Grep, registry)

	default:
		return nil, fmt.Errorf("config: operation entry has no recognised kind set")
	}
}

func buildSave(d SaveDoc, registry map[string]plugin.Plugin) (operation.Operation, error) {
	if d.Plugin == "" {
		if d.Append {
			return operation.SaveBodyAppend(d.Path), nil
		}
		return operation.SaveBody(d.Path), nil
	}
	p, ok := registry[d.Plugin]
	if !ok {
		return nil, fmt.Errorf("config: save: unknown plugin %q", d.Plugin)
	}
	if d.Append {
		return operation.SaveAppend(d.Path, p), nil
	}
	return operation.NewSave(d.Path, p), nil
}

func buildHttp(d HttpDoc, registry map[string]plugin.Plugin) (operation.Operation, error) {
	action, err := buildOperations(d.Action, registry)
	if err != nil {
		return nil, err
	}
	otherwise, err := buildOperations(d.Otherwise, registry)
	if err != nil {
		return nil, err
	}
	return operation.NewHttp(d.Status, action, otherwise), nil
}

func buildGrep(d GrepDoc, registry map[string]plugin.Plugin) (operation.Operation, error) {
	action, err := buildOperations(d.Action, registry)
	if err != nil {
		return nil, err
	}
	otherwise, err := buildOperations(d.Otherwise, registry)
	if err != nil {
		return nil, err
	}
	return operation.NewGrep(d.Regex, action, otherwise), nil
}
