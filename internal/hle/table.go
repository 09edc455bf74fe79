package hle

// defaultTable mirrors the BIOS A/B/C function table's actually
// traced subset: file/device I/O, heap and exception setup, console
// I/O, and the event/thread primitives games call most often. Entries
// follow the "return_type Name(params...)" shape the function table
// is built from, keyed by ((vector>>4)<<8) | function_number.
func defaultTable() map[uint32]Call {
	t := map[uint32]Call{}
	add := func(id uint32, name string, params ...Param) {
		t[id] = Call{Name: name, Params: params}
	}

	// Vector A (file system primitives, §6 supplemented HLE table).
	add(0xA00, "open", Param{"filename", ParamCharPtr}, Param{"accessmode", ParamAccessMode})
	add(0xA01, "lseek", Param{"fd", ParamInt}, Param{"offset", ParamInt}, Param{"seekmode", ParamSeekMode})
	add(0xA02, "read", Param{"fd", ParamInt}, Param{"dst", ParamVoidPtr}, Param{"len", ParamUint})
	add(0xA03, "write", Param{"fd", ParamInt}, Param{"src", ParamVoidPtr}, Param{"len", ParamUint})
	add(0xA04, "close", Param{"fd", ParamInt})
	add(0xA05, "ioctl", Param{"fd", ParamInt}, Param{"cmd", ParamInt}, Param{"arg", ParamInt})
	add(0xA06, "exit", Param{"exitcode", ParamInt})
	add(0xA07, "isatty", Param{"fd", ParamInt})
	add(0xA08, "getc", Param{"fd", ParamInt})
	add(0xA09, "putch", Param{"char", ParamChar}, Param{"fd", ParamInt})
	add(0xA2F, "rand")
	add(0xA33, "malloc", Param{"size", ParamUint})
	add(0xA39, "InitHeap", Param{"addr", ParamVoidPtr}, Param{"size", ParamUint})
	add(0xA3B, "getchar")
	add(0xA3C, "putchar", Param{"char", ParamChar})
	add(0xA3F, "printf", Param{"str", ParamCharPtr})
	add(0xA42, "Load", Param{"filename", ParamCharPtr}, Param{"headerbuf", ParamVoidPtr})
	add(0xA43, "Exec", Param{"headerbuf", ParamVoidPtr}, Param{"param1", ParamUint}, Param{"param2", ParamUint})
	add(0xA44, "FlushCache")
	add(0xA49, "GPU_cw", Param{"cmd", ParamUint})
	add(0xA96, "AddCDROMDevice")
	add(0xA97, "AddMemcardDevice")
	add(0xA99, "add_nullcon_driver")

	// Vector B (kernel/event/thread primitives).
	add(0xB07, "DeliverEvent", Param{"class", ParamEventClass}, Param{"spec", ParamUint})
	add(0xB08, "OpenEvent", Param{"class", ParamEventClass}, Param{"spec", ParamUint}, Param{"mode", ParamEventMode}, Param{"func", ParamVoidPtr})
	add(0xB09, "CloseEvent", Param{"event", ParamUint})
	add(0xB0A, "WaitEvent", Param{"event", ParamUint})
	add(0xB0B, "TestEvent", Param{"event", ParamUint})
	add(0xB0C, "EnableEvent", Param{"event", ParamUint})
	add(0xB0E, "OpenThread", Param{"pc", ParamUint}, Param{"SP", ParamUint}, Param{"GP", ParamUint})
	add(0xB0F, "CloseThread", Param{"handle", ParamUint})
	add(0xB10, "ChangeThread", Param{"handle", ParamUint})
	add(0xB12, "InitPAD2", Param{"buf1", ParamVoidPtr}, Param{"size1", ParamUint}, Param{"buf2", ParamVoidPtr}, Param{"size2", ParamUint})
	add(0xB13, "StartPAD2")
	add(0xB17, "ReturnFromException")
	add(0xB18, "ResetEntryInt")
	add(0xB19, "HookEntryInt", Param{"addr", ParamVoidPtr})
	add(0xB20, "UnDeliverEvent", Param{"class", ParamEventClass}, Param{"spec", ParamUint})
	add(0xB32, "open", Param{"filename", ParamCharPtr}, Param{"accessmode", ParamAccessMode})
	add(0xB33, "lseek", Param{"fd", ParamInt}, Param{"offset", ParamInt}, Param{"seekmode", ParamSeekMode})
	add(0xB34, "read", Param{"fd", ParamInt}, Param{"dst", ParamVoidPtr}, Param{"len", ParamUint})
	add(0xB35, "write", Param{"fd", ParamInt}, Param{"src", ParamVoidPtr}, Param{"len", ParamUint})
	add(0xB36, "close", Param{"fd", ParamInt})
	add(0xB38, "exit", Param{"exitcode", ParamInt})
	add(0xB39, "isatty", Param{"fd", ParamInt})
	add(0xB3A, "getc", Param{"fd", ParamInt})
	add(0xB3C, "getchar")
	add(0xB3D, "putchar", Param{"char", ParamChar})
	add(0xB3F, "puts", Param{"str", ParamCharPtr})
	add(0xB45, "erase", Param{"filename", ParamCharPtr})
	add(0xB47, "AddDrv", Param{"dev_info", ParamUint})
	add(0xB4A, "InitCARD2", Param{"pad_enable", ParamBool})
	add(0xB4B, "StartCARD2")
	add(0xB4D, "_card_info_subfunc", Param{"port", ParamUint})
	add(0xB4E, "_card_write", Param{"port", ParamUint}, Param{"sector", ParamUint}, Param{"src", ParamVoidPtr})
	add(0xB4F, "_card_read", Param{"port", ParamUint}, Param{"sector", ParamUint}, Param{"dst", ParamVoidPtr})
	add(0xB5C, "_card_status", Param{"port", ParamUint})
	add(0xB5D, "_card_wait", Param{"port", ParamUint})

	// Vector C (low-level kernel setup).
	add(0xC00, "EnqueueTimerAndVBlankIrqs", Param{"priority", ParamUint})
	add(0xC01, "EnqueueSyscallHandler", Param{"priority", ParamUint})
	add(0xC02, "SysEnqIntRP", Param{"priority", ParamUint}, Param{"struc", ParamVoidPtr})
	add(0xC03, "SysDeqIntRP", Param{"priority", ParamUint}, Param{"struc", ParamVoidPtr})
	add(0xC07, "InstallExceptionHandlers")
	add(0xC08, "SysInitMemory", Param{"addr", ParamVoidPtr}, Param{"size", ParamUint})
	add(0xC0A, "ChangeClearRCnt", Param{"timer", ParamUint}, Param{"flag", ParamUint})
	add(0xC0C, "InitDefInt", Param{"priority", ParamUint})
	add(0xC12, "InstallDevices", Param{"ttyflag", ParamUint})
	add(0xC1C, "AdjustA0Table")

	return t
}
