package services

import "fmt"

const (
	FlashNotice  = "notice"
	FlashWarning = "warning"
	FlashError   = "error"
)

// Flash is a one-shot user message produced by a workflow.
type Flash struct {
	Type    string            `json:"type"`
	Key     string            `json:"key"`
	Message string            `json:"message"`
	Vars    map[string]string `json:"vars,omitempty"`
}

func notFoundFlash(id string) Flash {
	return Flash{
		Type:    FlashError,
		Key:     "sms.error.notfound",
		Message: fmt.Sprintf("No SMS with id %s was found.", id),
		Vars:    map[string]string{"id": id},
	}
}

func accessDeniedFlash(id string) Flash {
	return Flash{
		Type:    FlashError,
		Key:     "sms.error.accessdenied",
		Message: fmt.Sprintf("You do not have access to SMS %s.", id),
		Vars:    map[string]string{"id": id},
	}
}

func lockedFlash(name, holder string) Flash {
	return Flash{
		Type:    FlashError,
		Key:     "sms.error.locked",
		Message: fmt.Sprintf("%s is currently checked out by %s.", name, holder),
		Vars:    map[string]string{"name": name, "holder": holder},
	}
}

func createdFlash(name, id string) Flash {
	return Flash{
		Type:    FlashNotice,
		Key:     "sms.notice.created",
		Message: fmt.Sprintf("%s has been created.", name),
		Vars:    map[string]string{"name": name, "id": id},
	}
}

func updatedFlash(name, id string) Flash {
	return Flash{
		Type:    FlashWarning,
		Key:     "sms.notice.updated",
		Message: fmt.Sprintf("%s has been updated.", name),
		Vars:    map[string]string{"name": name, "id": id},
	}
}

func deletedFlash(name, id string) Flash {
	return Flash{
		Type:    FlashNotice,
		Key:     "sms.notice.deleted",
		Message: fmt.Sprintf("%s (%s) has been deleted.", name, id),
		Vars:    map[string]string{"name": name, "id": id},
	}
}

func batchDeletedFlash(count int) Flash {
	return Flash{
		Type:    FlashNotice,
		Key:     "sms.notice.batch_deleted",
		Message: fmt.Sprintf("%d SMS have been deleted.", count),
		Vars:    map[string]string{"count": fmt.Sprint(count)},
	}
}

func vetoedFlash(name string, err error) Flash {
	return Flash{
		Type:    FlashError,
		Key:     "sms.error.vetoed",
		Message: fmt.Sprintf("%s was not changed: %v", name, err),
		Vars:    map[string]string{"name": name},
	}
}
