// Package authz answers who may decide or process whose leave.
//
// Subjects and objects are "employee:<id>". HR role holders may approve anyone
// except themselves and are the only ones who may process decided requests.
// Managers receive an explicit grant for each direct report.
package authz

import (
	"fmt"
	"io"

	"leave-ledger/internal/models"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/sirupsen/logrus"
)

const (
	ActApprove = "approve"
	ActProcess = "process"

	roleHR      = "role:hr"
	objLeave    = "leave"
	objEmployee = "employee:*"
)

const modelText = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub != r.obj && g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && r.act == p.act
`

type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
	logger   *logrus.Logger
}

// New builds the enforcer. policyFile is an optional casbin CSV with extra
// grants; it is read once and never written back.
func New(policyFile string, logger *logrus.Logger) (*Authorizer, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("casbin model: %w", err)
	}

	var e *casbin.SyncedEnforcer
	if policyFile != "" {
		e, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(policyFile))
	} else {
		e, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}
	e.EnableAutoSave(false)

	if _, err := e.AddPolicy(roleHR, objEmployee, ActApprove); err != nil {
		return nil, err
	}
	if _, err := e.AddPolicy(roleHR, objLeave, ActProcess); err != nil {
		return nil, err
	}

	return &Authorizer{enforcer: e, logger: logger}, nil
}

func Subject(employeeID uint) string {
	return fmt.Sprintf("employee:%d", employeeID)
}

// Sync registers every employee of the directory.
func (a *Authorizer) Sync(employees []models.Employee) error {
	for i := range employees {
		if err := a.AddEmployee(&employees[i]); err != nil {
			return err
		}
	}
	a.logger.WithField("employees", len(employees)).Info("authorization policies synced")
	return nil
}

// AddEmployee applies the role and reporting line of emp.
func (a *Authorizer) AddEmployee(emp *models.Employee) error {
	sub := Subject(emp.ID)
	if emp.IsHR() {
		if _, err := a.enforcer.AddGroupingPolicy(sub, roleHR); err != nil {
			return err
		}
	} else if _, err := a.enforcer.RemoveGroupingPolicy(sub, roleHR); err != nil {
		return err
	}

	if emp.ManagerID != nil {
		return a.Grant(*emp.ManagerID, emp.ID)
	}
	return nil
}

// Grant lets approverID decide the leave of employeeID.
func (a *Authorizer) Grant(approverID, employeeID uint) error {
	_, err := a.enforcer.AddPolicy(Subject(approverID), Subject(employeeID), ActApprove)
	return err
}

func (a *Authorizer) CanApprove(approverID, employeeID uint) (bool, error) {
	ok, err := a.enforcer.Enforce(Subject(approverID), Subject(employeeID), ActApprove)
	if err != nil {
		return false, err
	}
	a.logger.WithFields(logrus.Fields{
		"approver_id": approverID,
		"employee_id": employeeID,
		"allowed":     ok,
	}).Debug("approve check")
	return ok, nil
}

func (a *Authorizer) CanProcess(adminID uint) (bool, error) {
	return a.enforcer.Enforce(Subject(adminID), objLeave, ActProcess)
}
